// Package scan provides read access to the raw usage tables.
//
// # Overview
//
// The engine reads whole tables; the only filter primitive the backing store
// offers is a substring match on a single named attribute. ItemScanner is the
// narrow interface the engine consumes, DynamoDBScanner is the production
// implementation, and MemoryScanner backs tests and local development.
//
// Items come back as flat string attribute bags. The tables only carry scalar
// attributes; numbers are kept as their decimal string form and parsed where
// they are consumed.
//
// # Usage Example
//
//	scanner, err := scan.NewDynamoDBScanner(ctx, cfg)
//	result, err := scanner.Scan(ctx, "chat-usage", &scan.Filter{
//		Attribute: "sk",
//		Contains:  "2025-10",
//	})
package scan
