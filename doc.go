/*
Package ftl is a client for the binary API of the Pi-hole FTL statistics daemon
(“the backend”).

A client opens a connection, writes a command line such as “>stats\n” and reads
back a stream of MessagePack values terminated by the end-of-message marker.
There is no length prefix and no self-describing schema: every command has a
fixed response shape that both sides agree on.

# Wire format

Every value starts with a marker byte:

  - int32: 0xd2 followed by 4 big-endian bytes.
  - int64: 0xd3 followed by 8 bytes.
  - uint8: 0xcc followed by 1 byte.
  - float32: 0xca followed by an IEEE-754 single.
  - string: fixstr, str8, str16 or str32, followed by UTF-8 bytes.
  - map header: only used by overTime, which sends two int32→int32 maps.
  - EOM: 0xc1, the marker MessagePack reserves as “never used”.

Numeric reads are strict, i.e. an int32 read does not accept a positive fixint.

# Responses

Fixed responses (stats, dbstats) contain a known list of values followed by
EOM. Anything other than EOM after the last value is a protocol error.

Repeating responses (top-domains, top-ads, top-clients, getallqueries) contain
zero or more records of the same shape followed by EOM. The tally commands write a
query total before the first record; a tally response that is just EOM is empty.

EOM is valid in exactly one position of a repeating response: where the first
field of the next record would start. RecordLoop implements this as an explicit
state machine. EOM anywhere else, including between two fields of one record, is
a *ProtocolError; a record is never returned partially.

# Errors

Typed reads fail with *TypeMismatchError, *BufferTooSmallError,
*InvalidEncodingError or *ConnectionError; decoders add *ProtocolError. Client
methods wrap all of them into *CommandError, which matches ErrUnknownFailure, so
callers that only care about success can check just that.

# Sessions

A Session owns one transport for one command and is never shared. Client opens a
new session per call, so concurrent calls are independent. Nothing is cached or
retried: a response cannot be resynchronized after a failed read.
*/
package ftl
