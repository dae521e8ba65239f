package ftl

import "fmt"

// LoopState is the state of a RecordLoop.
type LoopState int

const (
	AwaitingRecordOrEOM LoopState = iota
	ReadingRecordFields
	Done
	Failed
)

func (s LoopState) String() string {
	switch s {
	case AwaitingRecordOrEOM:
		return "awaiting-record-or-eom"
	case ReadingRecordFields:
		return "reading-record-fields"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// RecordLoop reads the records of a repeating schema until EOM.
//
// The end-of-message marker is accepted in exactly one place: the transition
// out of AwaitingRecordOrEOM, i.e. where the first field of a new record would
// start. Anywhere else it fails the loop with a *ProtocolError.
//
//	loop := NewRecordLoop(r, &historySchema)
//	for loop.Next() {
//		rec := loop.Record()
//		...
//	}
//	if err := loop.Err(); err != nil {
//		...
//	}
type RecordLoop struct {
	r      *Reader
	schema *Schema
	state  LoopState
	rec    []Value
	buf    []byte
	count  int
	err    error
}

func NewRecordLoop(r *Reader, sch *Schema) *RecordLoop {
	if !sch.Repeating || sch.arity() == 0 {
		panic(fmt.Errorf("%s: record loop needs a non-empty repeating schema", sch.Command))
	}
	return &RecordLoop{
		r:      r,
		schema: sch,
		rec:    make([]Value, sch.arity()),
		buf:    sch.stringBuf(),
	}
}

// Next reads the next complete record. It returns false once the loop is Done
// or Failed.
func (l *RecordLoop) Next() bool {
	for {
		switch l.state {
		case AwaitingRecordOrEOM:
			l.state, l.err = l.awaitRecord()
		case ReadingRecordFields:
			l.state, l.err = l.readFields()
			if l.state == AwaitingRecordOrEOM {
				l.count++
				return true
			}
		case Done, Failed:
			return false
		}
	}
}

func (l *RecordLoop) awaitRecord() (LoopState, error) {
	m, err := l.r.peekMarker()
	if err != nil {
		return Failed, err
	}
	if m == markerEOM {
		l.r.consumeEOM()
		return Done, nil
	}
	first := l.schema.Fields[0]
	if !first.Accepts(m) {
		return Failed, protoErrf(l.schema.Command, l.r.Offset(), &TypeMismatchError{Expected: first, Marker: m, Off: l.r.Offset()}, "unexpected marker at start of record %d", l.count+1)
	}
	return ReadingRecordFields, nil
}

func (l *RecordLoop) readFields() (LoopState, error) {
	for i := range l.schema.Fields {
		v, err := l.schema.readField(l.r, i, l.buf)
		if err != nil {
			return Failed, fmt.Errorf("record %d: %w", l.count+1, fieldErr(l.schema, l.r, i, err))
		}
		l.rec[i] = v
	}
	return AwaitingRecordOrEOM, nil
}

// Record returns the record read by the last successful Next. The slice is
// reused by the following call.
func (l *RecordLoop) Record() []Value {
	return l.rec
}

// Err returns the error that moved the loop to Failed, if any.
func (l *RecordLoop) Err() error {
	return l.err
}

func (l *RecordLoop) State() LoopState {
	return l.state
}

// Count returns the number of complete records read.
func (l *RecordLoop) Count() int {
	return l.count
}

// ForEachRecord runs a RecordLoop to completion, calling fn for every record.
func ForEachRecord(r *Reader, sch *Schema, fn func(rec []Value)) (int, error) {
	loop := NewRecordLoop(r, sch)
	for loop.Next() {
		fn(loop.Record())
	}
	return loop.Count(), loop.Err()
}
