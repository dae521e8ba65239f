package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/andreyvit/ftl"
	"github.com/andreyvit/ftl/capture"
)

func (a *app) print(w io.Writer, v any) error {
	if a.format == "json" {
		return printJSON(w, v)
	}
	return printTable(w, v)
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

func printTable(w io.Writer, v any) error {
	var sections []pterm.TableData
	switch v := v.(type) {
	case *ftl.Summary:
		sections = append(sections, summaryTable(v))
	case *ftl.OverTime:
		sections = append(sections, overTimeTable(v))
	case *ftl.TopDomains:
		sections = append(sections, tallyTable("Domain", v.Total, v.Domains))
	case *ftl.TopClients:
		sections = append(sections, tallyTable("Client", v.Total, v.Clients))
	case []ftl.Query:
		sections = append(sections, historyTable(v))
	case *ftl.DBStats:
		sections = append(sections, pterm.TableData{
			{"Queries", "File size", "SQLite"},
			{itoa(v.Queries), strconv.FormatInt(v.FileSize, 10), v.SQLiteVersion},
		})
	case *ftl.Dashboard:
		sections = append(sections,
			summaryTable(v.Summary),
			overTimeTable(v.OverTime),
			tallyTable("Domain", v.TopDomains.Total, v.TopDomains.Domains),
			tallyTable("Blocked domain", v.TopBlocked.Total, v.TopBlocked.Domains),
			tallyTable("Client", v.TopClients.Total, v.TopClients.Clients),
		)
	default:
		return fmt.Errorf("no table layout for %T", v)
	}

	for i, data := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s)
	}
	return nil
}

func summaryTable(s *ftl.Summary) pterm.TableData {
	return pterm.TableData{
		{"Metric", "Value"},
		{"Domains on blocklist", itoa(s.DomainsBlocked)},
		{"Total queries", itoa(s.TotalQueries)},
		{"Blocked queries", itoa(s.BlockedQueries)},
		{"Percent blocked", strconv.FormatFloat(float64(s.PercentBlocked), 'f', 2, 32)},
		{"Unique domains", itoa(s.UniqueDomains)},
		{"Forwarded queries", itoa(s.ForwardedQueries)},
		{"Cached queries", itoa(s.CachedQueries)},
		{"Total clients", itoa(s.TotalClients)},
		{"Unique clients", itoa(s.UniqueClients)},
		{"Status", statusName(s.Status)},
	}
}

func statusName(status uint8) string {
	switch status {
	case 0:
		return "disabled"
	case 1:
		return "enabled"
	default:
		return "unknown (" + strconv.Itoa(int(status)) + ")"
	}
}

func overTimeTable(ot *ftl.OverTime) pterm.TableData {
	data := pterm.TableData{{"Time", "Queries", "Blocked"}}
	for _, ts := range ot.DomainsOverTime.Keys() {
		total, _ := ot.DomainsOverTime.Get(ts)
		blocked, _ := ot.BlockedOverTime.Get(ts)
		data = append(data, []string{formatUnix(ts), itoa(total), itoa(blocked)})
	}
	return data
}

// tallyTable lists entries by descending count, ties broken by key.
func tallyTable(title string, total int32, counts map[string]int32) pterm.TableData {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})

	data := pterm.TableData{{title, "Count", "Share"}}
	for _, k := range keys {
		share := "-"
		if total > 0 {
			share = strconv.FormatFloat(100*float64(counts[k])/float64(total), 'f', 1, 64) + "%"
		}
		data = append(data, []string{k, itoa(counts[k]), share})
	}
	return data
}

func historyTable(history []ftl.Query) pterm.TableData {
	data := pterm.TableData{{"Time", "Type", "Domain", "Client", "Status", "DNSSEC"}}
	for _, q := range history {
		data = append(data, []string{formatUnix(q.Timestamp), q.Type, q.Domain, q.Client, strconv.Itoa(int(q.Status)), strconv.Itoa(int(q.DNSSEC))})
	}
	return data
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func formatUnix(ts int32) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.DateTime)
}

func printCaptures(w io.Writer, records []*capture.Record, st capture.Stats) error {
	data := pterm.TableData{{"Command", "Captured at", "Bytes"}}
	for _, rec := range records {
		data = append(data, []string{rec.Command, rec.CapturedAt.Format(time.RFC3339), strconv.Itoa(len(rec.Data))})
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, s)
	fmt.Fprintf(w, "%d records, %d bytes in use, %d allocated, file %d bytes\n", st.Records, st.DataSize, st.DataAlloc, st.FileSize)
	return nil
}
