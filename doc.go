// Package codebytes implements the data layer of a code snippet sharing and
// remote execution service over a single DynamoDB table.
//
// # Key Concepts
//
// Every stored entity is a Document bound to a Schema. A schema classifies
// attribute names as required, immutable or optional, and may mirror an
// attribute into a secondary index attribute. Documents are written through
// Document.Set, which keeps mirrors equal to their source.
//
// The table uses a single-table design:
//   - pk: the owning user, or a sentinel partition (PUBLIC, SYSTEM)
//   - sk: "{TYPE}~{name}"
//   - gsi0_pk: read-only share link of a snippet (index gsi0)
//   - gsi1_pk: read-write share link of a snippet (index gsi1)
//   - ttl: expiry of anonymous snippets and page cursors
//
// # Identity
//
// The acting user travels in the request context:
//
//	ctx = codebytes.WithIdentity(ctx, codebytes.User("alice@example.com"))
//
// A context without identity acts anonymously.
//
// # Basic Usage
//
//	table := codebytes.NewTable(codebytes.NewDynamoStore(ddb, "codebytes"), func(t *codebytes.Table) {
//	    t.Executor = codebytes.NewLambdaExecutor(lambdaClient)
//	    t.AppURL = "https://codebytes.example.com"
//	})
//
//	snippet, err := table.NewSnippet(ctx, codebytes.SnippetInput{
//	    Name:    "demo",
//	    Runtime: "python38",
//	    Code:    "print('hello')",
//	    Permissions: []codebytes.Grant{
//	        {User: "bob@example.com", Read: true, Execute: true},
//	    },
//	})
//	err = snippet.Create(ctx)
//	result, err := snippet.Exec(ctx)
//
// # Sharing
//
// Each grant in a snippet's permission list is mirrored by a SharedSnippet
// record in the grantee's partition. Creating, updating and deleting the
// snippet keeps those records in step. Grantees reach the snippet through
// the record:
//
//	shared, err := table.GetSharedSnippet(ctx, "demo", "alice@example.com", "bob@example.com")
//	result, err := shared.Exec(ctx)
//
// # Permissions
//
// Owners may do anything. Other users need a grant with the matching flag,
// except that public snippets and items in a public partition are readable
// by everyone. Denials wrap ErrNotAuthorized.
package codebytes
