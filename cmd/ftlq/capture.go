package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreyvit/ftl"
	"github.com/andreyvit/ftl/capture"
	"github.com/andreyvit/ftl/ftltest"
)

func (a *app) newCaptureCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "capture [command...]",
		Short: "Record raw backend responses into a capture file",
		Long: "Runs the given backend commands (all of them by default) and stores the raw\n" +
			"response bytes. Responses that fail to decode are stored as well.",
		RunE: func(cmd *cobra.Command, args []string) error {
			commands := args
			if len(commands) == 0 {
				commands = ftl.Commands()
			}
			store, err := capture.Open(file, capture.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			var failed int
			for _, command := range commands {
				n, err := a.captureOne(cmd.Context(), store, command)
				if err != nil {
					failed++
					a.logger.Warn().Err(err).Str("command", command).Int("bytes", n).Msg("captured failing response")
					continue
				}
				a.logger.Info().Str("command", command).Int("bytes", n).Msg("captured")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d commands failed to decode", failed, len(commands))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "output", "o", "ftl-capture.db", "capture file")
	return cmd
}

// captureOne stores whatever bytes the backend sent, even when decoding fails.
// Only transport failures before any data arrived skip the store.
func (a *app) captureOne(ctx context.Context, store *capture.Store, command string) (int, error) {
	var raw bytes.Buffer
	cfg := a.ftlConfig()
	cfg.Tap = &raw

	s, err := ftl.Connect(ctx, cfg, command)
	if err != nil {
		return 0, err
	}
	_, decodeErr := ftl.DecodeCommand(s.Reader, command)
	s.Close()

	var connErr *ftl.ConnectionError
	if raw.Len() == 0 && errors.As(decodeErr, &connErr) {
		return 0, decodeErr
	}
	if err := store.Put(command, raw.Bytes(), time.Now()); err != nil {
		return raw.Len(), err
	}
	return raw.Len(), decodeErr
}

func (a *app) newCapturesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List the responses stored in a capture file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := capture.Open(file, capture.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All()
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				return err
			}
			if a.format == "json" {
				type entry struct {
					Command    string    `json:"command"`
					CapturedAt time.Time `json:"captured_at"`
					Bytes      int       `json:"bytes"`
				}
				entries := make([]entry, 0, len(records))
				for _, rec := range records {
					entries = append(entries, entry{rec.Command, rec.CapturedAt, len(rec.Data)})
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"stats": st, "captures": entries})
			}
			return printCaptures(cmd.OutOrStdout(), records, st)
		},
	}
	cmd.Flags().StringVarP(&file, "input", "i", "ftl-capture.db", "capture file")
	return cmd
}

func (a *app) newReplayCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Serve captured responses as a fake backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := capture.Open(file, capture.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			records, err := store.All()
			store.Close()
			if err != nil {
				return err
			}

			backend := a.cfg.Backend
			srv, err := ftltest.Listen(backend.Network, backend.Addr, logfFor(a.logger))
			if err != nil {
				return err
			}
			defer srv.Close()
			for _, rec := range records {
				srv.Respond(rec.Command, rec.Data)
				a.logger.Info().Str("command", rec.Command).Int("bytes", len(rec.Data)).Time("captured_at", rec.CapturedAt).Msg("serving")
			}
			a.logger.Info().Str("network", srv.Network()).Str("addr", srv.Addr()).Msg("replay backend listening")

			<-cmd.Context().Done()
			a.logger.Info().Int("requests", len(srv.Requests())).Msg("replay backend stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "input", "i", "ftl-capture.db", "capture file")
	return cmd
}
