// Package core provides the batch engine behind the product image finder.
//
// It is independent of any transport and can be driven by the web handlers,
// tests or any other frontend.
//
// # Flow
//
//  1. [Service.Ingest] parses an uploaded CSV into a header and data rows and
//     opens a session.
//  2. [Service.ChooseColumn] fixes the product column, builds the work list
//     with [BuildWorkItems] and dispatches the first window.
//  3. [Service.Advance] dispatches the following windows on request.
//  4. [Service.Select] changes the chosen image of a finished item.
//  5. [Service.Export] materializes the chosen images as [Artifact] values.
//
// # Batch Processor
//
// [Processor] keeps one [ItemStatus] per [WorkItem]. Statuses only move
// forward: Pending, Loading, then Done or Failed. A window covers a fixed
// number of consecutive items; its Pending items are fetched concurrently
// and the next window can only be requested once all of them settled. A
// failed fetch is recorded on its own item and never affects siblings.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE005: upload and parse errors
//   - VAL001-VAL003: column selection errors
//   - SES001-SES003: session lookups
//   - GEN001-GEN003: image generation
//   - UPL001-UPL003, RATE001: load and throttling
package core
