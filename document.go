package codebytes

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Item is the attribute map exchanged with a Store.
type Item = map[string]any

// Stamp records when and by whom a document was created or modified.
type Stamp struct {
	At time.Time `dynamodbav:"at" json:"at"`
	By string    `dynamodbav:"by" json:"by"`
}

// Entity is anything backed by a Document. Entities may also implement
// [CreateHook], [UpdateHook] and [DeleteHook].
type Entity interface {
	Doc() *Document
}

// Document is a schema-bound attribute map. All writes go through Set, which
// normalizes the value and keeps indexed mirrors equal to their source.
type Document struct {
	schema *Schema
	attrs  Item
}

// LoadDocument wraps an item read from a Store. The item is not validated.
func LoadDocument(schema *Schema, item Item) *Document {
	return &Document{schema: schema, attrs: deepCopy(item)}
}

func newDocument(schema *Schema) *Document {
	return &Document{schema: schema, attrs: make(Item)}
}

// Doc implements Entity.
func (d *Document) Doc() *Document { return d }

// Schema returns the schema the document is bound to.
func (d *Document) Schema() *Schema { return d.schema }

// Set stores value under name and copies it into the mirrored index
// attribute, if name is indexed. A nil value removes the attribute.
func (d *Document) Set(name string, value any) error {
	if !d.schema.Knows(name) {
		return unknownAttribute(name)
	}

	if value == nil {
		d.unset(name)
		return nil
	}

	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", name, err)
	}

	d.attrs[name] = normalized
	if mirror, ok := d.schema.Mirror(name); ok {
		d.attrs[mirror] = deepCopyValue(normalized)
	}
	return nil
}

func (d *Document) unset(name string) {
	delete(d.attrs, name)
	if mirror, ok := d.schema.Mirror(name); ok {
		delete(d.attrs, mirror)
	}
}

// Value returns the raw value of an attribute.
func (d *Document) Value(name string) (any, bool) {
	v, ok := d.attrs[name]
	return v, ok
}

// Has reports whether the attribute is present.
func (d *Document) Has(name string) bool {
	_, ok := d.attrs[name]
	return ok
}

// String returns a string attribute, or "" when absent or not a string.
func (d *Document) String(name string) string {
	s, _ := d.attrs[name].(string)
	return s
}

// Bool returns a boolean attribute, or false when absent.
func (d *Document) Bool(name string) bool {
	b, _ := d.attrs[name].(bool)
	return b
}

// Int64 returns a numeric attribute, or 0 when absent.
func (d *Document) Int64(name string) int64 {
	switch n := d.attrs[name].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// Decode unmarshals an attribute into out using the dynamodb attribute codec.
func (d *Document) Decode(name string, out any) error {
	v, ok := d.attrs[name]
	if !ok {
		return nil
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal attribute %s: %w", name, err)
	}
	if err := attributevalue.Unmarshal(av, out); err != nil {
		return fmt.Errorf("failed to unmarshal attribute %s: %w", name, err)
	}
	return nil
}

// Item returns a copy of the document's attributes.
func (d *Document) Item() Item { return deepCopy(d.attrs) }

// Key returns the primary key of the document.
func (d *Document) Key() Key {
	return Key{
		Partition: d.String(AttributeNamePartitionKey),
		Sort:      d.String(AttributeNameSortKey),
	}
}

// Name, User, TypeName, PartitionKey and SortKey return the base attributes
// every document carries, or "" when unset.
func (d *Document) Name() string         { return d.String(AttributeNameName) }
func (d *Document) User() string         { return d.String(AttributeNameUser) }
func (d *Document) TypeName() string     { return d.String(AttributeNameTypeName) }
func (d *Document) PartitionKey() string { return d.String(AttributeNamePartitionKey) }
func (d *Document) SortKey() string      { return d.String(AttributeNameSortKey) }

// Created returns the creation stamp.
func (d *Document) Created() Stamp {
	var s Stamp
	_ = d.Decode(AttributeNameCreated, &s)
	return s
}

// Updated returns the last modification stamp.
func (d *Document) Updated() Stamp {
	var s Stamp
	_ = d.Decode(AttributeNameUpdated, &s)
	return s
}

// Grants returns the permission grants of the document, in stored order.
func (d *Document) Grants() []Grant {
	var grants []Grant
	if err := d.Decode(AttributeNamePermissions, &grants); err != nil {
		return nil
	}
	return grants
}

func (d *Document) clone() *Document {
	return &Document{schema: d.schema, attrs: deepCopy(d.attrs)}
}

// validate returns an error naming the first missing required attribute.
func (d *Document) validate() error {
	for _, name := range d.schema.Required() {
		if !d.Has(name) {
			return missingAttribute(name)
		}
	}
	return nil
}

// normalize converts v into the shape it has after a store round trip.
func normalize(v any) (any, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sameValue(a, b any) bool {
	na, err := normalize(a)
	if err != nil {
		return false
	}
	nb, err := normalize(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func deepCopy(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopyValue(t[i])
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	case map[string]string:
		return maps.Clone(t)
	}
	return v
}
