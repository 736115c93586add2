package notifier

import "context"

const chatChannelName = "chat"

// ChatChannel is the messaging-bot channel. It has no delivery backend
// yet, so every Send fails with ErrNotImplemented.
type ChatChannel struct{}

func NewChatChannel() *ChatChannel { return &ChatChannel{} }

func (c *ChatChannel) Name() string { return chatChannelName }

func (c *ChatChannel) Send(_ context.Context, _ Request) error {
	return sendError(chatChannelName, ErrNotImplemented, nil)
}
