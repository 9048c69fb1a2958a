package models

// Output keys written by the launcher.
const (
	OutputInventoryID = "INVENTORY_ID"
	OutputJobID       = "JOB_ID"
	OutputJobStatus   = "JOB_STATUS"
	OutputJobURL      = "JOB_URL"
	OutputToken       = "AWX_TOKEN"
)

// Outputs is an insertion-ordered string mapping. The zero value is ready to use.
type Outputs struct {
	keys   []string
	values map[string]string
}

// NewOutputs builds Outputs from alternating key, value arguments.
func NewOutputs(kv ...string) Outputs {
	var o Outputs
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i], kv[i+1])
	}
	return o
}

// Set adds or replaces a value. Replacing keeps the original position.
func (o *Outputs) Set(key, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored for key.
func (o Outputs) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o Outputs) Keys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of entries.
func (o Outputs) Len() int {
	return len(o.keys)
}
