// Package board implements the activity board client: it fetches the
// activity roster from the activities API, renders it into a Document and
// handles the two user actions, signing up for an activity and removing a
// participant.
//
// # Document
//
// A Document is what a browser would show. It has four regions:
//
//   - List: one Card per activity with its participant rows, or a notice
//     such as "Failed to load activities. Please try again later."
//   - Select: the activity selector, a placeholder option followed by one
//     option per activity
//   - Form: the values of the signup form
//   - Message: the status message with its severity and visibility
//
// Every render discards the previous List and Select and rebuilds them from
// a freshly fetched roster. Nothing is patched locally: after a signup or a
// removal the board fetches the whole roster again.
//
// # Usage
//
//	b := board.New(client, board.WithLogger(logger))
//	defer b.Close()
//
//	b.FetchAndRender(ctx)
//	b.HandleSignup(ctx, "someone@example.com", "Chess Club")
//	doc := b.Snapshot()
//	board.RenderHTML(w, doc, board.DefaultTitle)
//
// # Concurrency
//
// A Board may be used from several goroutines. Document updates are
// serialized by a mutex that is never held across an API call, so a signup
// and a removal may be in flight at the same time. Each render takes a
// sequence number before its request is sent; a response that arrives after
// a newer render has been applied is discarded.
//
// # Status messages
//
// Each action shows a status message that hides itself after a delay (5s
// for signups, 4s for removals by default). Showing a new message stops the
// previous hide timer.
package board
