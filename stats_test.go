package ftl

import (
	"errors"
	"testing"

	"github.com/andreyvit/ftl/ftltest"
)

func summaryStream() *ftltest.Stream {
	return ftltest.NewStream().
		Int32s(5, 100, 5).
		Float32(5.0).
		Int32s(20, 50, 45, 10, 8).
		Uint8(1)
}

func TestDecodeSummary(t *testing.T) {
	r := readerOf(t, summaryStream().EOM())
	s, err := DecodeSummary(r)
	if err != nil {
		t.Fatalf("DecodeSummary = %v, wanted nil", err)
	}
	deepEqual(t, *s, Summary{
		DomainsBlocked:   5,
		TotalQueries:     100,
		BlockedQueries:   5,
		PercentBlocked:   5.0,
		UniqueDomains:    20,
		ForwardedQueries: 50,
		CachedQueries:    45,
		TotalClients:     10,
		UniqueClients:    8,
		Status:           1,
	})
	if off, want := r.Offset(), int64(summaryStream().EOM().Len()); off != want {
		t.Fatalf("Offset = %d, wanted %d", off, want)
	}
}

func TestDecodeSummary_EarlyEOM(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Int32s(5, 100, 5).EOM())
	_, err := DecodeSummary(r)
	pe := asProtocolError(t, err)
	if pe.Command != CmdSummary {
		t.Fatalf("Command = %q, wanted %q", pe.Command, CmdSummary)
	}
	if !IsEOM(err) {
		t.Fatalf("IsEOM = false, wanted true")
	}
}

func TestDecodeSummary_TrailingData(t *testing.T) {
	r := readerOf(t, summaryStream().Int32(0).EOM())
	_, err := DecodeSummary(r)
	pe := asProtocolError(t, err)
	if pe.Command != CmdSummary {
		t.Fatalf("Command = %q, wanted %q", pe.Command, CmdSummary)
	}
}

func TestDecodeSummary_WrongWidth(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Marker(0x05).EOM())
	_, err := DecodeSummary(r)
	pe := asProtocolError(t, err)
	var tm *TypeMismatchError
	if !errors.As(pe, &tm) || tm.Marker != 0x05 {
		t.Fatalf("cause = %v, wanted mismatch on 0x05", pe.Err)
	}
}

func TestDecodeTopDomains(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().
		Int32(100).
		Str("example.com").Int32(10).
		Str("pi.hole").Int32(5).
		Str("example.com").Int32(7).
		EOM())
	top, err := DecodeTopDomains(r)
	if err != nil {
		t.Fatalf("DecodeTopDomains = %v, wanted nil", err)
	}
	deepEqual(t, *top, TopDomains{
		Total:   100,
		Domains: map[string]int32{"example.com": 7, "pi.hole": 5},
	})
}

func TestDecodeTopBlocked(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().
		Int32(20).
		Str("ads.example").Int32(4).
		Str("track.example").Int32(3).
		Str("ads.example").Int32(9).
		EOM())
	top, err := DecodeTopBlocked(r)
	if err != nil {
		t.Fatalf("DecodeTopBlocked = %v, wanted nil", err)
	}
	deepEqual(t, *top, TopDomains{
		Total:   20,
		Domains: map[string]int32{"ads.example": 9, "track.example": 3},
	})
}

func TestDecodeTopBlocked_Empty(t *testing.T) {
	t.Run("bare EOM", func(t *testing.T) {
		top, err := DecodeTopBlocked(readerOf(t, ftltest.NewStream().EOM()))
		if err != nil {
			t.Fatalf("DecodeTopBlocked = %v, wanted nil", err)
		}
		deepEqual(t, *top, TopDomains{Domains: map[string]int32{}})
	})
	t.Run("total then EOM", func(t *testing.T) {
		top, err := DecodeTopBlocked(readerOf(t, ftltest.NewStream().Int32(3).EOM()))
		if err != nil {
			t.Fatalf("DecodeTopBlocked = %v, wanted nil", err)
		}
		deepEqual(t, *top, TopDomains{Total: 3, Domains: map[string]int32{}})
	})
}

func TestDecodeTopBlocked_BadTotal(t *testing.T) {
	_, err := DecodeTopBlocked(readerOf(t, ftltest.NewStream().Str("ads.example").Int32(1).EOM()))
	pe := asProtocolError(t, err)
	if pe.Command != CmdTopBlocked {
		t.Fatalf("Command = %q, wanted %q", pe.Command, CmdTopBlocked)
	}
}

func TestDecodeTopClients(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().
		Int32(50).
		Str("laptop").Str("192.168.1.5").Int32(30).
		Str("192.168.1.9").Str("").Int32(20).
		Str("laptop").Str("192.168.1.5").Int32(35).
		EOM())
	top, err := DecodeTopClients(r)
	if err != nil {
		t.Fatalf("DecodeTopClients = %v, wanted nil", err)
	}
	deepEqual(t, *top, TopClients{
		Total: 50,
		Clients: map[string]int32{
			"laptop|192.168.1.5": 35,
			"192.168.1.9":        20,
		},
	})
}

func TestClientKey(t *testing.T) {
	deepEqual(t, ClientKey("laptop", "10.0.0.2"), "laptop|10.0.0.2")
	deepEqual(t, ClientKey("laptop", ""), "laptop")
	deepEqual(t, ClientKey("", "10.0.0.2"), "|10.0.0.2")
}

func TestDecodeHistory(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().
		Int32(1700000000).Str("A").Str("example.com").Str("10.0.0.2").Uint8(2).Uint8(0).
		Int32(1700000005).Str("AAAA").Str("ads.example").Str("laptop").Uint8(1).Uint8(3).
		EOM())
	history, err := DecodeHistory(r)
	if err != nil {
		t.Fatalf("DecodeHistory = %v, wanted nil", err)
	}
	deepEqual(t, history, []Query{
		{Timestamp: 1700000000, Type: "A", Domain: "example.com", Client: "10.0.0.2", Status: 2, DNSSEC: 0},
		{Timestamp: 1700000005, Type: "AAAA", Domain: "ads.example", Client: "laptop", Status: 1, DNSSEC: 3},
	})
}

func TestDecodeHistory_Empty(t *testing.T) {
	history, err := DecodeHistory(readerOf(t, ftltest.NewStream().EOM()))
	if err != nil {
		t.Fatalf("DecodeHistory = %v, wanted nil", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("history = %#v, wanted empty non-nil slice", history)
	}
}

func TestDecodeHistory_TruncatedRecord(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Int32(1700000000).Str("A").Str("example.com").EOM())
	_, err := DecodeHistory(r)
	pe := asProtocolError(t, err)
	if pe.Command != CmdHistory {
		t.Fatalf("Command = %q, wanted %q", pe.Command, CmdHistory)
	}
}

func TestDecodeOverTime(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().
		IntMap(1600, 7, 1000, 5).
		IntMap(1600, 2, 1000, 1).
		EOM())
	ot, err := DecodeOverTime(r)
	if err != nil {
		t.Fatalf("DecodeOverTime = %v, wanted nil", err)
	}
	deepEqual(t, ot.DomainsOverTime.Keys(), []int32{1600, 1000})
	deepEqual(t, ot.DomainsOverTime.Map(), map[int32]int32{1000: 5, 1600: 7})
	deepEqual(t, ot.BlockedOverTime.Map(), map[int32]int32{1000: 1, 1600: 2})
}

func TestDecodeOverTime_Errors(t *testing.T) {
	t.Run("missing second map", func(t *testing.T) {
		_, err := DecodeOverTime(readerOf(t, ftltest.NewStream().IntMap(1, 2).EOM()))
		pe := asProtocolError(t, err)
		if pe.Command != CmdOverTime {
			t.Fatalf("Command = %q, wanted %q", pe.Command, CmdOverTime)
		}
	})
	t.Run("trailing data", func(t *testing.T) {
		_, err := DecodeOverTime(readerOf(t, ftltest.NewStream().IntMap().IntMap().Int32(1).EOM()))
		pe := asProtocolError(t, err)
		if pe.Command != CmdOverTime {
			t.Fatalf("Command = %q, wanted %q", pe.Command, CmdOverTime)
		}
	})
	t.Run("EOM inside map", func(t *testing.T) {
		_, err := DecodeOverTime(readerOf(t, ftltest.NewStream().Marker(0x82).Int32s(1, 2).EOM()))
		if !IsEOM(err) {
			t.Fatalf("err = %v, wanted EOM mismatch", err)
		}
		asProtocolError(t, err)
	})
}

func TestDecodeCommand(t *testing.T) {
	v, err := DecodeCommand(readerOf(t, summaryStream().EOM()), CmdSummary)
	if err != nil {
		t.Fatalf("DecodeCommand = %v, wanted nil", err)
	}
	if s, ok := v.(*Summary); !ok || s.TotalQueries != 100 {
		t.Fatalf("DecodeCommand = %#v, wanted *Summary", v)
	}

	_, err = DecodeCommand(readerOf(t, ftltest.NewStream().EOM()), "nope")
	if err == nil {
		t.Fatalf("DecodeCommand(nope) = nil, wanted error")
	}
}

func TestCommands(t *testing.T) {
	deepEqual(t, Commands(), []string{"dbstats", "getallqueries", "overTime", "stats", "top-ads", "top-clients", "top-domains"})
}
