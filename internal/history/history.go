// Package history bounds the number of conversational turns sent to a
// generation backend.
package history

import (
	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/pkg/message"
)

// Limit keeps the most recent limit non-system messages. System messages
// are never dropped: they are re-emitted first, in their original relative
// order. An unset limit, or a conversation already within it, is returned
// as a copy of msgs.
func Limit(msgs []message.Message, limit budget.Limit) []message.Message {
	n, ok := limit.Get()
	if !ok {
		return message.Concat(msgs)
	}

	var system, turns []message.Message
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			system = append(system, m)
		} else {
			turns = append(turns, m)
		}
	}
	if len(turns) <= n {
		return message.Concat(msgs)
	}
	return message.Concat(system, turns[len(turns)-n:]...)
}
