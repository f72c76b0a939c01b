/*
Package kvstore implements an embedded, transactional key-value persistence
layer for small scalar records (booleans, 64-bit integers, 64-bit floats,
UTF-8 text) on top of a B-tree storage engine (in this case, Bolt).

We implement:

1. Environments, one per directory, holding the engine's files. At most one
open environment handle exists per directory within a process; a process-wide
registry hands out reference-counted handles.

2. Databases, independent named keyspaces within one environment. The empty
name selects the distinguished default database, which doubles as a catalog
of the named databases in the same environment.

3. Enumerators, ordered single-pass cursors over a half-open key range,
reflecting a consistent snapshot of the database at creation time.

4. An operation queue, serializing asynchronous operations through a single
worker so that callers in non-blocking contexts observe linear, one-at-a-time
completion in submission order.

# Technical Details

**Buckets.**
Named databases map to root buckets in Bolt. The default database lives in
the reserved bucket "\x00"; engines in the LMDB family name databases with
NUL-terminated strings, so no caller-supplied name can collide with it.

**Catalog.**
Creating a named database writes a record under the database's name into the
default bucket, msgpack of a small metadata struct. Catalog keys are
reserved: writes to them fail with ErrConflict, reads report the key absent,
and enumeration of the default database skips them.

## Binary encoding

**Value**: a single tag byte, then a type-specific payload.

1. Null (tag 0): no payload.
2. Bool (tag 1): one byte, 0 or 1.
3. Int (tag 2): 8 bytes, big-endian two's complement.
4. Float (tag 3): 8 bytes, big-endian IEEE-754 bits. NaN, infinities and
negative zero round-trip bit for bit.
5. Text (tag 4): raw UTF-8 bytes, unterminated; the length is implicit from
the stored value's length.

An unrecognized tag decodes to a hard error, never a silent default.
*/
package kvstore
