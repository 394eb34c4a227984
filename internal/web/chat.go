package web

import "strings"

// chatReply maps a message to a canned assistant response. The widget
// is intentionally dumb: keyword lookup, no model calls.
func chatReply(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "save") && strings.Contains(msg, "conflict"):
		return "A save conflict means someone else saved the dataset after you loaded it. Reload the dataset, re-apply your edits, and save again."
	case strings.Contains(msg, "row_id"):
		return "The row_id column is assigned automatically on save and keeps row identity stable across edits. Leave it blank for new rows."
	case strings.Contains(msg, "diff") || strings.Contains(msg, "review"):
		return "Use the review step before saving: it lists added, deleted, and modified rows compared to the loaded snapshot."
	case strings.Contains(msg, "cost"):
		return "Cost reports are produced by the `dataops costs` command against the ETL job run history. Ask your operations team for a recent report."
	case strings.Contains(msg, "login") || strings.Contains(msg, "password"):
		return "Credentials are managed in the secrets store. Contact an administrator if your login stopped working."
	case strings.Contains(msg, "export"):
		return "Database exports run on a schedule via `dataops export`; results land in the exports/ prefix as timestamped CSV files."
	case strings.Contains(msg, "hello") || strings.Contains(msg, "hi"):
		return "Hello! Ask me about editing datasets, reviewing changes, or saving."
	default:
		return "I can help with dataset editing, reviewing changes, saving, and where exports and cost reports live. Try asking about one of those."
	}
}
