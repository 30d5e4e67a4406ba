// Package dynamock provides testing utilities for the codebytes library.
//
// This package includes:
//   - An in-memory codebytes.Store with DynamoDB conditional write and query semantics
//   - Expectation-based mock DynamoDB and Lambda clients for unit testing
//   - Local DynamoDB integration utilities
//   - Builders for snippet and runtime inputs
//   - Test data seeding helpers
//
// # Memory Store
//
// Most tests run the mapper against a MemoryStore:
//
//	store := dynamock.NewMemoryStore()
//	engine := dynamock.NewMockLambda(t).Respond(`"ok"`)
//	table := dynamock.NewTable(store, func(tbl *codebytes.Table) {
//		tbl.Executor = codebytes.NewLambdaExecutor(engine)
//	})
//
// NewTable fixes the clock at Epoch and generates predictable tokens.
//
// # Mock Client
//
// The MockClient provides an expectation-based mock implementation where you set
// expectations for specific operations:
//
//	mock := dynamock.NewMockClient(t)
//	mock.GetFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
//		return &dynamodb.GetItemOutput{}, nil
//	}
//	store := codebytes.NewDynamoStore(mock, "test-table")
//
// Calls without an expectation fail the test.
//
// # Builders
//
//	in := dynamock.NewSnippetInput(
//		dynamock.WithName("demo"),
//		dynamock.WithGrant("bob", codebytes.PermissionRead, codebytes.PermissionExecute),
//	)
//	snippet, err := table.NewSnippet(ctx, in)
//
// # Local DynamoDB
//
// Integration tests run against DynamoDB Local and skip when it is not running:
//
//	dynamock.RunIntegrationTest(t, nil, func(store *codebytes.DynamoStore) {
//		table := codebytes.NewTable(store)
//		// ...
//	})
//
// # Seeding
//
//	seeder := dynamock.NewSeedTestData(table)
//	count, err := seeder.SeedFromJSON(ctx, strings.NewReader(`[
//		{"type": "Runtime", "id": "python38", "user": "SYSTEM", "attributes": {"arn": "python38"}}
//	]`))
package dynamock
