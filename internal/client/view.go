// internal/client/view.go
package client

// View receives render instructions from the Manager. All calls are made
// from the Manager's event loop goroutine, one at a time, in order.
type View interface {
	ShowLogin()
	ShowChat()
	// ClearChatView removes all rendered messages and roster content.
	ClearChatView()
	AppendChatMessage(username, content string)
	AppendAnnouncement(content string)
	BeginHistoryBlock()
	EndHistoryBlock()
	// RenderRoster replaces the roster display. members is the current
	// room's list in server order; otherRooms maps every other room to
	// its member count.
	RenderRoster(members []string, otherRooms map[string]int)
	ShowError(message string)
}
