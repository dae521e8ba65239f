package ftl

import (
	"context"
	"fmt"
	"slices"
)

type anyDecoder func(r *Reader) (any, error)

func erase[T any](decode func(*Reader) (T, error)) anyDecoder {
	return func(r *Reader) (any, error) {
		v, err := decode(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var decoders = map[string]anyDecoder{
	CmdSummary:    erase(DecodeSummary),
	CmdOverTime:   erase(DecodeOverTime),
	CmdTopDomains: erase(DecodeTopDomains),
	CmdTopBlocked: erase(DecodeTopBlocked),
	CmdTopClients: erase(DecodeTopClients),
	CmdHistory:    erase(DecodeHistory),
	CmdDBStats:    erase(DecodeDBStats),
}

// Commands returns the names of all supported backend commands, sorted.
func Commands() []string {
	names := make([]string, 0, len(decoders))
	for name := range decoders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DecodeCommand decodes the response to command, returning the same type
// the corresponding Decode* function does.
func DecodeCommand(r *Reader, command string) (any, error) {
	decode := decoders[command]
	if decode == nil {
		return nil, fmt.Errorf("ftl: unknown command %q", command)
	}
	return decode(r)
}

// Run executes any supported command by name.
func (c *Client) Run(ctx context.Context, command string) (any, error) {
	decode := decoders[command]
	if decode == nil {
		return nil, fmt.Errorf("ftl: unknown command %q", command)
	}
	return run(ctx, c, command, decode)
}
