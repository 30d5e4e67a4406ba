package codebytes

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	AttributeNamePartitionKey = "pk"
	AttributeNameSortKey      = "sk"
	AttributeNameTypeName     = "__typename"
	AttributeNameCreated      = "createdAt"
	AttributeNameUpdated      = "updatedAt"
	AttributeNameName         = "name"
	AttributeNameUser         = "user"
	AttributeNameExpires      = "ttl"
	AttributeNameSystem       = "system"
	AttributeNamePublic       = "public"
	AttributeNamePermissions  = "permissions"
)

// SchemaDef declares the attributes of an entity type. It is merged with the
// base attributes shared by every document in [NewSchema].
type SchemaDef struct {
	Type      string            // Sort key prefix, e.g. "SNIPPET"
	TypeName  string            // Stamped into __typename; derived from Type when empty
	Required  []string          // Must be present before any write
	Immutable []string          // Settable at creation only
	Optional  []string          // May be present or absent
	Indexed   map[string]string // Logical attribute -> mirrored index attribute
}

var baseDef = SchemaDef{
	Required: []string{
		AttributeNamePartitionKey,
		AttributeNameSortKey,
		AttributeNameName,
		AttributeNameUser,
		AttributeNameCreated,
		AttributeNameUpdated,
		AttributeNameTypeName,
	},
	Immutable: []string{
		AttributeNamePartitionKey,
		AttributeNameSortKey,
		AttributeNameName,
		AttributeNameUser,
		AttributeNameCreated,
		AttributeNameTypeName,
		AttributeNameExpires,
	},
	Optional: []string{
		AttributeNameExpires,
	},
}

// Schema is the immutable, composed attribute declaration of one entity type.
type Schema struct {
	typ       string
	typeName  string
	required  []string
	immutable map[string]bool
	known     map[string]bool
	indexed   map[string]string
}

// NewSchema composes def with the base document attributes. The result is
// never modified after construction.
func NewSchema(def SchemaDef) *Schema {
	s := &Schema{
		typ:       def.Type,
		typeName:  def.TypeName,
		immutable: make(map[string]bool),
		known:     make(map[string]bool),
		indexed:   make(map[string]string),
	}
	if s.typeName == "" {
		s.typeName = cases.Title(language.Und).String(strings.ToLower(def.Type))
	}

	for _, name := range append(slices.Clone(baseDef.Required), def.Required...) {
		if !slices.Contains(s.required, name) {
			s.required = append(s.required, name)
		}
		s.known[name] = true
	}
	for _, name := range append(slices.Clone(baseDef.Immutable), def.Immutable...) {
		s.immutable[name] = true
		s.known[name] = true
	}
	for _, name := range append(slices.Clone(baseDef.Optional), def.Optional...) {
		s.known[name] = true
	}
	for logical, physical := range def.Indexed {
		s.indexed[logical] = physical
		s.known[logical] = true
		s.known[physical] = true
		// mirrors follow their source and can never be written on their own
		s.immutable[physical] = true
	}
	return s
}

// Type returns the sort key prefix of the schema.
func (s *Schema) Type() string { return s.typ }

// TypeName returns the value stamped into __typename.
func (s *Schema) TypeName() string { return s.typeName }

// Required returns the required attributes in declaration order.
func (s *Schema) Required() []string { return slices.Clone(s.required) }

// IsImmutable reports whether name may only be set at creation.
func (s *Schema) IsImmutable(name string) bool { return s.immutable[name] }

// Knows reports whether name is declared by the schema.
func (s *Schema) Knows(name string) bool { return s.known[name] }

// Mirror returns the index attribute that mirrors name, if any.
func (s *Schema) Mirror(name string) (string, bool) {
	physical, ok := s.indexed[name]
	return physical, ok
}

// SortKey returns the sort key of the named document of this type.
func (s *Schema) SortKey(delimiter, name string) string {
	return s.typ + delimiter + name
}

// Index names and the attributes they are keyed on.
const (
	IndexReadOnlyLink  = "gsi0"
	IndexReadWriteLink = "gsi1"

	AttributeNameReadOnlyLink  = "gsi0_pk"
	AttributeNameReadWriteLink = "gsi1_pk"
)

var (
	// RuntimeSchema describes an execution target.
	RuntimeSchema = NewSchema(SchemaDef{
		Type:      "RUNTIME",
		Required:  []string{AttributeNameName},
		Immutable: []string{"requirements", "arn", AttributeNameSystem},
		Optional:  []string{"description"},
	})

	// SnippetSchema describes a stored code snippet.
	SnippetSchema = NewSchema(SchemaDef{
		Type:      "SNIPPET",
		Required:  []string{"code", AttributeNamePublic, AttributeNamePermissions, "runtime"},
		Immutable: []string{"runtime", AttributeNamePublic, "roUrl", "rwUrl"},
		Optional:  []string{"description"},
		Indexed: map[string]string{
			"roUrl": AttributeNameReadOnlyLink,
			"rwUrl": AttributeNameReadWriteLink,
		},
	})

	// SharedSnippetSchema describes one grantee's capability record for a snippet.
	SharedSnippetSchema = NewSchema(SchemaDef{
		Type:      "SHAREDSNIPPET",
		TypeName:  "SharedSnippet",
		Required:  []string{"owner"},
		Immutable: []string{"owner"},
		Optional:  []string{"read", "write", "execute"},
	})

	// BaseSchema is used for documents whose type name is not registered.
	BaseSchema = NewSchema(SchemaDef{})
)

var schemas = map[string]*Schema{
	RuntimeSchema.TypeName():       RuntimeSchema,
	SnippetSchema.TypeName():       SnippetSchema,
	SharedSnippetSchema.TypeName(): SharedSnippetSchema,
}

// SchemaFor returns the schema registered for typeName, or BaseSchema.
func SchemaFor(typeName string) *Schema {
	if s, ok := schemas[typeName]; ok {
		return s
	}
	return BaseSchema
}
