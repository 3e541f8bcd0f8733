package data

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// larkNotifier posts operator alerts as text messages to one Lark chat
type larkNotifier struct {
	client *lark.Client
	chatID string
}

// NewLarkNotifier creates a notifier, or returns nil when Lark is not configured
func NewLarkNotifier(appID, appSecret, chatID string) repo.NotifyRepo {
	if appID == "" || appSecret == "" || chatID == "" {
		return nil
	}
	return &larkNotifier{
		client: lark.NewClient(appID, appSecret),
		chatID: chatID,
	}
}

// Notify sends text to the alert chat
func (n *larkNotifier) Notify(ctx context.Context, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("lark alert failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark alert error: %s", resp.Msg)
	}
	return nil
}
