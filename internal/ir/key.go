package ir

// Key is the opaque byte string used as shard-routing input.
// It carries no type information of its own; protocol layers are
// responsible for turning a primary-key value into a Key, typically via
// Value.Bytes()/Value.Text() or a composite encoding.
type Key []byte

func KeyFromString(s string) Key { return Key(s) }
func (k Key) String() string     { return string(k) }
