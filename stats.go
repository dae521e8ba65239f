package ftl

import "errors"

// Backend command names.
const (
	CmdSummary    = "stats"
	CmdOverTime   = "overTime"
	CmdTopDomains = "top-domains"
	CmdTopBlocked = "top-ads"
	CmdTopClients = "top-clients"
	CmdHistory    = "getallqueries"
	CmdDBStats    = "dbstats"
)

var (
	summarySchema = Schema{
		Command: CmdSummary,
		Fields: []Kind{
			KindInt32,   // domains_blocked
			KindInt32,   // total_queries
			KindInt32,   // blocked_queries
			KindFloat32, // percent_blocked
			KindInt32,   // unique_domains
			KindInt32,   // forwarded_queries
			KindInt32,   // cached_queries
			KindInt32,   // total_clients
			KindInt32,   // unique_clients
			KindUint8,   // status
		},
	}

	topDomainsSchema = Schema{Command: CmdTopDomains, Repeating: true, Fields: []Kind{KindString, KindInt32}}
	topBlockedSchema = Schema{Command: CmdTopBlocked, Repeating: true, Fields: []Kind{KindString, KindInt32}}
	topClientsSchema = Schema{Command: CmdTopClients, Repeating: true, Fields: []Kind{KindString, KindString, KindInt32}}

	historySchema = Schema{
		Command:   CmdHistory,
		Repeating: true,
		Fields: []Kind{
			KindInt32,  // timestamp
			KindString, // query type
			KindString, // domain
			KindString, // client
			KindUint8,  // status
			KindUint8,  // dnssec
		},
	}
)

type Summary struct {
	DomainsBlocked   int32   `json:"domains_blocked"`
	TotalQueries     int32   `json:"total_queries"`
	BlockedQueries   int32   `json:"blocked_queries"`
	PercentBlocked   float32 `json:"percent_blocked"`
	UniqueDomains    int32   `json:"unique_domains"`
	ForwardedQueries int32   `json:"forwarded_queries"`
	CachedQueries    int32   `json:"cached_queries"`
	TotalClients     int32   `json:"total_clients"`
	UniqueClients    int32   `json:"unique_clients"`
	Status           uint8   `json:"status"`
}

func DecodeSummary(r *Reader) (*Summary, error) {
	v, err := ReadFixed(r, &summarySchema)
	if err != nil {
		return nil, err
	}
	return &Summary{
		DomainsBlocked:   v[0].Int32(),
		TotalQueries:     v[1].Int32(),
		BlockedQueries:   v[2].Int32(),
		PercentBlocked:   v[3].Float32(),
		UniqueDomains:    v[4].Int32(),
		ForwardedQueries: v[5].Int32(),
		CachedQueries:    v[6].Int32(),
		TotalClients:     v[7].Int32(),
		UniqueClients:    v[8].Int32(),
		Status:           v[9].Uint8(),
	}, nil
}

type OverTime struct {
	DomainsOverTime *IntMap `json:"domains_over_time"`
	BlockedOverTime *IntMap `json:"blocked_over_time"`
}

func DecodeOverTime(r *Reader) (*OverTime, error) {
	domains, err := ReadIntMap(r)
	if err != nil {
		return nil, containerErr(r, err, "domains over time")
	}
	blocked, err := ReadIntMap(r)
	if err != nil {
		return nil, containerErr(r, err, "blocked over time")
	}
	if err := r.ExpectEOM(); err != nil {
		return nil, withCommand(err, CmdOverTime)
	}
	return &OverTime{
		DomainsOverTime: domains,
		BlockedOverTime: blocked,
	}, nil
}

func containerErr(r *Reader, err error, what string) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		return protoErrf(CmdOverTime, r.Offset(), err, "bad %s map", what)
	}
	return err
}

// TopDomains is the result of both top-domains and top-ads. Total is the
// number of queries the tally was computed from: all queries for
// top-domains, blocked queries for top-ads.
type TopDomains struct {
	Total   int32            `json:"total"`
	Domains map[string]int32 `json:"domains"`
}

func DecodeTopDomains(r *Reader) (*TopDomains, error) {
	return decodeTopDomains(r, &topDomainsSchema)
}

func DecodeTopBlocked(r *Reader) (*TopDomains, error) {
	return decodeTopDomains(r, &topBlockedSchema)
}

func decodeTopDomains(r *Reader, sch *Schema) (*TopDomains, error) {
	top := make(map[string]int32)
	total, done, err := readTotal(r, sch)
	if err != nil {
		return nil, err
	} else if done {
		return &TopDomains{Domains: top}, nil
	}
	_, err = ForEachRecord(r, sch, func(rec []Value) {
		top[rec[0].Str()] = rec[1].Int32()
	})
	if err != nil {
		return nil, err
	}
	return &TopDomains{Total: total, Domains: top}, nil
}

type TopClients struct {
	Total   int32            `json:"total_queries"`
	Clients map[string]int32 `json:"top_clients"`
}

// ClientKey identifies a client by name and address, or by name alone when
// the backend does not know its address.
func ClientKey(name, addr string) string {
	if addr == "" {
		return name
	}
	return name + "|" + addr
}

func DecodeTopClients(r *Reader) (*TopClients, error) {
	top := make(map[string]int32)
	total, done, err := readTotal(r, &topClientsSchema)
	if err != nil {
		return nil, err
	} else if done {
		return &TopClients{Clients: top}, nil
	}
	_, err = ForEachRecord(r, &topClientsSchema, func(rec []Value) {
		top[ClientKey(rec[0].Str(), rec[1].Str())] = rec[2].Int32()
	})
	if err != nil {
		return nil, err
	}
	return &TopClients{Total: total, Clients: top}, nil
}

// readTotal reads the query total the backend writes before a tally loop.
// A response that ends right away has no total and no records; done is true
// and the EOM has been consumed.
func readTotal(r *Reader, sch *Schema) (total int32, done bool, err error) {
	k, _, err := r.PeekKind()
	if err != nil {
		return 0, false, err
	}
	if k == KindEOM {
		r.consumeEOM()
		return 0, true, nil
	}
	total, err = r.ReadInt32()
	if err != nil {
		var tm *TypeMismatchError
		if errors.As(err, &tm) {
			return 0, false, protoErrf(sch.Command, r.Offset(), err, "bad query total")
		}
		return 0, false, err
	}
	return total, false, nil
}

// Query is one entry of the query log.
type Query struct {
	Timestamp int32  `json:"timestamp"`
	Type      string `json:"type"`
	Domain    string `json:"domain"`
	Client    string `json:"client"`
	Status    uint8  `json:"status"`
	DNSSEC    uint8  `json:"dnssec"`
}

// DecodeHistory returns the query log in the order the backend sent it.
func DecodeHistory(r *Reader) ([]Query, error) {
	history := []Query{}
	_, err := ForEachRecord(r, &historySchema, func(rec []Value) {
		history = append(history, Query{
			Timestamp: rec[0].Int32(),
			Type:      rec[1].Str(),
			Domain:    rec[2].Str(),
			Client:    rec[3].Str(),
			Status:    rec[4].Uint8(),
			DNSSEC:    rec[5].Uint8(),
		})
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}
