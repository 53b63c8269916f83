// Package whatsapp – events.go processes incoming whatsmeow events and
// converts them into channels.IncomingMessage values for the desk.
package whatsapp

import (
	"fmt"

	"github.com/jberleze/atendebot/pkg/atendebot/channels"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ConnectionState represents the current connection state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateWaitingQR    ConnectionState = "waiting_qr"
	StateBanned       ConnectionState = "banned"
)

// handleEvent is the main whatsmeow event dispatcher.
func (w *WhatsApp) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		w.handleMessageEvt(evt)

	case *events.Receipt:
		w.handleReceipt(evt)

	case *events.Connected:
		w.handleConnected(evt)

	case *events.Disconnected:
		w.handleDisconnected(evt)

	case *events.StreamReplaced:
		w.handleStreamReplaced(evt)

	case *events.LoggedOut:
		w.handleLoggedOut(evt)

	case *events.TemporaryBan:
		w.handleTemporaryBan(evt)

	case *events.KeepAliveTimeout:
		w.handleKeepAliveTimeout(evt)

	case *events.KeepAliveRestored:
		w.logger.Info("whatsapp: keep-alive restored")
		w.errorCount.Store(0)

	case *events.ConnectFailure:
		w.handleConnectFailure(evt)

	case *events.HistorySync:
		w.logger.Debug("whatsapp: history sync received")

	case *events.PairSuccess:
		w.handlePairSuccess(evt)

	case *events.QRScannedWithoutMultidevice:
		w.logger.Warn("whatsapp: QR scanned but multidevice not enabled")
	}
}

func (w *WhatsApp) handleConnected(_ *events.Connected) {
	w.setState(StateConnected)
	w.connected.Store(true)
	w.errorCount.Store(0)
	w.reconnectAttempts.Store(0)
	w.UpdateLastMsgTime()

	w.logger.Info("whatsapp: connected", "jid", w.getClientJID())

	// Clear any QR state.
	w.notifyQR(QREvent{
		Type:    "success",
		Message: "WhatsApp conectado!",
	})
}

func (w *WhatsApp) handleDisconnected(_ *events.Disconnected) {
	previous := w.getState()
	w.setState(StateDisconnected)

	w.logger.Warn("whatsapp: disconnected", "was_connected", w.connected.Load())
	w.connected.Store(false)

	// Attempt reconnection if not intentional.
	if previous == StateConnected && w.ctx.Err() == nil {
		go w.attemptReconnect()
	}
}

func (w *WhatsApp) handleStreamReplaced(_ *events.StreamReplaced) {
	w.setState(StateDisconnected)
	w.connected.Store(false)
	w.logger.Error("whatsapp: stream replaced - another device connected")
}

func (w *WhatsApp) handleLoggedOut(evt *events.LoggedOut) {
	w.setState(StateDisconnected)
	w.connected.Store(false)

	reason := "unknown"
	if evt.Reason != 0 {
		reason = evt.Reason.String()
	}

	w.logger.Error("whatsapp: logged out", "reason", reason, "on_connect", evt.OnConnect)

	// Session invalidated — request a new QR code.
	w.qrObserversMu.Lock()
	w.lastQR = nil
	w.qrObserversMu.Unlock()
	go func() {
		if err := w.loginWithQR(w.ctx); err != nil {
			w.logger.Warn("whatsapp: QR re-login failed", "error", err)
		}
	}()
}

func (w *WhatsApp) handleTemporaryBan(evt *events.TemporaryBan) {
	w.setState(StateBanned)
	w.connected.Store(false)
	w.logger.Error("whatsapp: temporary ban", "code", evt.Code, "expire", evt.Expire)
}

func (w *WhatsApp) handleKeepAliveTimeout(evt *events.KeepAliveTimeout) {
	w.logger.Warn("whatsapp: keep-alive timeout",
		"error_count", evt.ErrorCount, "last_success", evt.LastSuccess)

	w.errorCount.Add(1)

	// Consistent keepalive failures mean a half-open connection: the
	// socket looks connected but is dead. Force a reconnect.
	if evt.ErrorCount >= 3 && w.getState() == StateConnected {
		w.logger.Error("whatsapp: keep-alive failed multiple times, forcing reconnection",
			"error_count", evt.ErrorCount)
		w.setState(StateReconnecting)
		w.connected.Store(false)
		go w.attemptReconnect()
	}
}

func (w *WhatsApp) handleConnectFailure(evt *events.ConnectFailure) {
	w.setState(StateDisconnected)
	w.connected.Store(false)

	reason := "unknown"
	if evt.Reason != 0 {
		reason = evt.Reason.String()
	}
	permanent := evt.PermanentDisconnectDescription()

	w.logger.Error("whatsapp: connect failure",
		"reason", reason, "message", evt.Message, "permanent", permanent)

	if permanent == "" && w.ctx.Err() == nil {
		go w.attemptReconnect()
	}
}

func (w *WhatsApp) handlePairSuccess(evt *events.PairSuccess) {
	w.logger.Info("whatsapp: device paired",
		"jid", evt.ID, "platform", evt.Platform, "business", evt.BusinessName)

	w.notifyQR(QREvent{
		Type:    "success",
		Message: fmt.Sprintf("Pareado com %s!", evt.ID.String()),
	})
}

// handleMessageEvt processes an incoming WhatsApp message event.
// Unlike a plain bot, messages authored by the linked account are NOT
// skipped: the desk needs them to detect the operator taking over a
// conversation. They are emitted with FromSelf set and ChatID pointing
// at the counterpart chat.
func (w *WhatsApp) handleMessageEvt(evt *events.Message) {
	w.UpdateLastMsgTime()

	// Skip status broadcasts.
	if evt.Info.Chat.Server == "broadcast" {
		return
	}

	// Resolve chat JID — WhatsApp may use LID (Linked Identity) format
	// instead of phone numbers for DMs.
	chatJID := evt.Info.Chat
	resolvedChat := chatJID.String()
	if chatJID.Server == "lid" && w.client != nil && w.client.Store != nil {
		if altJID, err := w.client.Store.GetAltJID(w.ctx, chatJID); err == nil && !altJID.IsEmpty() {
			resolvedChat = altJID.String()
		}
	}

	msg := &channels.IncomingMessage{
		ID:        string(evt.Info.ID),
		ChatID:    resolvedChat,
		FromSelf:  evt.Info.IsFromMe,
		FromName:  evt.Info.PushName,
		IsGroup:   evt.Info.IsGroup,
		Timestamp: evt.Info.Timestamp,
	}

	w.extractMessageContent(evt.Message, msg)

	// Auto-read customer messages if configured.
	if w.cfg.AutoRead && !msg.FromSelf && !msg.IsGroup {
		go func() {
			_ = w.MarkRead(w.ctx, msg.ChatID, []string{msg.ID})
		}()
	}

	w.emitMessage(msg)
}

// extractMessageContent extracts the text content from a WhatsApp message.
// Non-text messages get a typed placeholder; the desk only reacts to text.
func (w *WhatsApp) extractMessageContent(waMsg *waE2E.Message, msg *channels.IncomingMessage) {
	if waMsg == nil {
		msg.Type = channels.MessageOther
		return
	}

	if waMsg.Conversation != nil {
		msg.Type = channels.MessageText
		msg.Content = waMsg.GetConversation()
		return
	}

	if ext := waMsg.ExtendedTextMessage; ext != nil {
		msg.Type = channels.MessageText
		msg.Content = ext.GetText()
		return
	}

	if img := waMsg.ImageMessage; img != nil {
		msg.Type = channels.MessageImage
		msg.Content = img.GetCaption()
		return
	}

	if audio := waMsg.AudioMessage; audio != nil {
		msg.Type = channels.MessageAudio
		msg.Content = "[audio]"
		if audio.GetPTT() {
			msg.Content = "[voice note]"
		}
		return
	}

	if video := waMsg.VideoMessage; video != nil {
		msg.Type = channels.MessageVideo
		msg.Content = video.GetCaption()
		return
	}

	if doc := waMsg.DocumentMessage; doc != nil {
		msg.Type = channels.MessageDocument
		msg.Content = fmt.Sprintf("[document: %s]", doc.GetFileName())
		return
	}

	if waMsg.StickerMessage != nil {
		msg.Type = channels.MessageSticker
		msg.Content = "[sticker]"
		return
	}

	msg.Type = channels.MessageOther
	msg.Content = "[unsupported message type]"
}

// handleReceipt processes read/delivery receipts.
func (w *WhatsApp) handleReceipt(evt *events.Receipt) {
	switch evt.Type {
	case types.ReceiptTypeRead:
		w.logger.Debug("whatsapp: message read", "from", evt.Chat, "ids", evt.MessageIDs)
	case types.ReceiptTypeDelivered:
		w.logger.Debug("whatsapp: message delivered", "from", evt.Chat, "ids", evt.MessageIDs)
	}
}
