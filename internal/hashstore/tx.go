package hashstore

import "time"

// OpType identifies an operation queued in a Tx.
type OpType int

const (
	// OpSet sets Fields on Key.
	OpSet OpType = iota
	// OpDeleteFields removes Names from Key.
	OpDeleteFields
	// OpDeleteKey removes Key.
	OpDeleteKey
	// OpExpire sets a relative expiry of TTL on Key.
	OpExpire
	// OpPersist clears the expiry of Key.
	OpPersist
)

func (t OpType) String() string {
	switch t {
	case OpSet:
		return "set"
	case OpDeleteFields:
		return "hdel"
	case OpDeleteKey:
		return "del"
	case OpExpire:
		return "expire"
	case OpPersist:
		return "persist"
	default:
		return "unknown"
	}
}

// Op is a single queued write.
type Op struct {
	Type   OpType
	Key    string
	Fields map[string][]byte
	Names  []string
	TTL    time.Duration
}

// Tx queues writes for Store.Watch. Methods only record operations; nothing
// reaches the store until Watch applies the queue.
type Tx struct {
	ops []Op
}

// Set queues a single field write.
func (tx *Tx) Set(key, field string, value []byte) {
	tx.ops = append(tx.ops, Op{Type: OpSet, Key: key, Fields: map[string][]byte{field: value}})
}

// SetAll queues a multi-field write. The map is copied.
func (tx *Tx) SetAll(key string, fields map[string][]byte) {
	cp := make(map[string][]byte, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	tx.ops = append(tx.ops, Op{Type: OpSet, Key: key, Fields: cp})
}

// Delete queues removal of fields from key.
func (tx *Tx) Delete(key string, fields ...string) {
	tx.ops = append(tx.ops, Op{Type: OpDeleteFields, Key: key, Names: append([]string(nil), fields...)})
}

// Del queues removal of whole keys.
func (tx *Tx) Del(keys ...string) {
	for _, k := range keys {
		tx.ops = append(tx.ops, Op{Type: OpDeleteKey, Key: k})
	}
}

// Expire queues a relative expiry. A non-positive ttl deletes the key.
func (tx *Tx) Expire(key string, ttl time.Duration) {
	tx.ops = append(tx.ops, Op{Type: OpExpire, Key: key, TTL: ttl})
}

// Persist queues removal of an expiry.
func (tx *Tx) Persist(key string) {
	tx.ops = append(tx.ops, Op{Type: OpPersist, Key: key})
}

// Ops returns the queued operations in order.
func (tx *Tx) Ops() []Op {
	return tx.ops
}

// Len reports how many operations are queued.
func (tx *Tx) Len() int {
	return len(tx.ops)
}
