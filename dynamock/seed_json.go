package dynamock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nisimpson/codebytes"
)

// SeedTestData is a helper for seeding test data into a table.
type SeedTestData struct {
	table *codebytes.Table
}

// NewSeedTestData creates a new test data seeder.
func NewSeedTestData(table *codebytes.Table) *SeedTestData {
	return &SeedTestData{table: table}
}

// SeedEntity stores a single entity, overwriting any existing item. The
// entity's hooks run as they would for a regular create.
func (s *SeedTestData) SeedEntity(ctx context.Context, entity codebytes.Entity) error {
	if err := s.table.Create(ctx, entity, codebytes.Overwrite()); err != nil {
		return fmt.Errorf("failed to seed %s: %w", entity.Doc().Name(), err)
	}
	return nil
}

// SeedEntities seeds multiple entities into the table.
func (s *SeedTestData) SeedEntities(ctx context.Context, entities ...codebytes.Entity) error {
	for _, entity := range entities {
		if err := s.SeedEntity(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// SeedResource is one document of a JSON seed file.
type SeedResource struct {
	Type       string         `json:"type"`           // Registered type name, e.g. "Snippet"
	ID         string         `json:"id"`             // Document name
	User       string         `json:"user,omitempty"` // Partition; defaults to the acting user
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SeedFromJSON reads an array of SeedResource from r, converts each into a
// document of its registered type and stores it. Returns the number of
// items saved and any errors generated.
func (s *SeedTestData) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var resources []SeedResource
	if err := json.NewDecoder(r).Decode(&resources); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	docs := make([]*codebytes.Document, 0, len(resources))
	for i, res := range resources {
		doc, err := s.convertResource(ctx, res)
		if err != nil {
			return 0, fmt.Errorf("failed to convert resource at index %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	count := 0
	for _, doc := range docs {
		if err := s.SeedEntity(ctx, doc); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *SeedTestData) convertResource(ctx context.Context, res SeedResource) (*codebytes.Document, error) {
	if res.Type == "" {
		return nil, fmt.Errorf("resource missing required 'type' field")
	}
	if res.ID == "" {
		return nil, fmt.Errorf("resource missing required 'id' field")
	}

	schema := codebytes.SchemaFor(res.Type)
	if schema == codebytes.BaseSchema {
		return nil, fmt.Errorf("unknown resource type %q", res.Type)
	}

	attrs := codebytes.Item{codebytes.AttributeNameName: res.ID}
	for k, v := range res.Attributes {
		attrs[k] = v
	}
	if res.User != "" {
		attrs[codebytes.AttributeNameUser] = res.User
	}

	return s.table.NewDocument(ctx, schema, attrs)
}
