package frontdesk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jberleze/atendebot/pkg/atendebot/channels"
)

// Desk wires the pipeline together: transport → dedup → hours gate →
// state machine → session store + transport send. One Desk serves one
// linked WhatsApp account.
type Desk struct {
	store  *Store
	dedup  *Dedup
	gate   *HoursGate
	ch     channels.Channel
	logger *slog.Logger

	// chatLocks serializes handling per conversation. This is the
	// structural replacement for the transient "processing" record:
	// a second concurrent event for the same chat waits here instead of
	// also seeing "no session" and double-firing the welcome message.
	// Conversations are independent; there is no cross-chat locking.
	chatLocksMu sync.Mutex
	chatLocks   map[string]*sync.Mutex

	wg sync.WaitGroup
}

// NewDesk creates a desk over the given collaborators.
func NewDesk(store *Store, dedup *Dedup, gate *HoursGate, ch channels.Channel, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desk{
		store:     store,
		dedup:     dedup,
		gate:      gate,
		ch:        ch,
		logger:    logger.With("component", "desk"),
		chatLocks: make(map[string]*sync.Mutex),
	}
}

// Run consumes the transport's message stream until the context is
// cancelled or the stream closes. Each message is handled in its own
// goroutine so a slow or failing conversation never blocks the others.
func (d *Desk) Run(ctx context.Context) {
	d.logger.Info("front desk running")
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			d.logger.Info("front desk stopped")
			return
		case msg, ok := <-d.ch.Receive():
			if !ok {
				d.wg.Wait()
				d.logger.Info("front desk stopped, channel closed")
				return
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Handle(ctx, msg)
			}()
		}
	}
}

// Handle runs one inbound event through the pipeline. Safe to call
// concurrently; handling is serialized per chat.
func (d *Desk) Handle(ctx context.Context, msg *channels.IncomingMessage) {
	// Group-addressed conversations never produce a session, for either
	// actor.
	if msg.IsGroup {
		return
	}

	lock := d.lockFor(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	if msg.FromSelf {
		d.handleOperator(ctx, msg)
		return
	}
	d.handleCustomer(ctx, msg)
}

// handleCustomer processes a message authored by the customer.
func (d *Desk) handleCustomer(ctx context.Context, msg *channels.IncomingMessage) {
	// Only plain text drives the flow.
	if msg.Type != channels.MessageText {
		return
	}

	// Absorb transport redelivery.
	if d.dedup.Seen(msg.ID) {
		d.logger.Debug("duplicate message ignored", "chat", msg.ChatID, "id", msg.ID)
		return
	}

	// Outside business hours nothing advances; the chat gets one notice
	// per continuous closed period.
	if d.gate != nil && d.gate.Enabled() {
		now := time.Now()
		if !d.gate.Open(now) {
			if d.gate.ShouldNotify(msg.ChatID, now) {
				d.send(ctx, msg.ChatID, msgOutsideHours)
			}
			return
		}
		// Observed open: clear any leftover closed-period mark.
		d.gate.ShouldNotify(msg.ChatID, now)
	}

	sess := d.store.Get(msg.ChatID)
	text := Normalize(msg.Content)
	dec := Decide(ActorCustomer, text, sess)

	d.logger.Info("customer message",
		"chat", msg.ChatID,
		"mode", currentMode(sess),
		"persona", dec.Persona,
		"reply", dec.Reply != "")

	d.apply(ctx, msg.ChatID, sess, dec)
}

// handleOperator processes a message authored by the linked account.
func (d *Desk) handleOperator(ctx context.Context, msg *channels.IncomingMessage) {
	sess := d.store.Get(msg.ChatID)
	text := Normalize(msg.Content)
	dec := Decide(ActorOperator, text, sess)

	d.logger.Info("operator message",
		"chat", msg.ChatID,
		"mode", currentMode(sess),
		"delete", dec.Delete)

	d.apply(ctx, msg.ChatID, sess, dec)
}

// apply commits a decision: replies, then state. For an in-flow reply
// the send happens first so a delivery failure leaves the conversation
// state unchanged and the customer can simply repeat the message. A
// brand-new session is the one exception: it is stored before the
// welcome goes out and rolled back if the send fails, so the next
// inbound message retries cleanly.
func (d *Desk) apply(ctx context.Context, chatID string, prior *Session, dec Decision) {
	fresh := prior == nil && dec.Session != nil

	if fresh {
		d.store.Put(chatID, dec.Session)
		if dec.Reply != "" {
			if err := d.send(ctx, chatID, dec.Reply); err != nil {
				d.logger.Warn("rolling back new session after failed welcome",
					"chat", chatID, "error", err)
				d.store.Remove(chatID)
			}
		}
		return
	}

	if dec.Reply != "" {
		if err := d.send(ctx, chatID, dec.Reply); err != nil {
			return
		}
	}

	switch {
	case dec.Delete:
		d.store.Remove(chatID)
	case dec.Session != nil:
		d.store.Put(chatID, dec.Session)
	}
}

// send delivers a reply. Failures are logged, never retried.
func (d *Desk) send(ctx context.Context, chatID, text string) error {
	err := d.ch.Send(ctx, chatID, &channels.OutgoingMessage{Content: text})
	if err != nil {
		d.logger.Error("failed to send reply", "chat", chatID, "error", err)
	}
	return err
}

// lockFor returns the per-chat handling lock, creating it on first use.
func (d *Desk) lockFor(chatID string) *sync.Mutex {
	d.chatLocksMu.Lock()
	defer d.chatLocksMu.Unlock()

	lock, ok := d.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		d.chatLocks[chatID] = lock
	}
	return lock
}

func currentMode(sess *Session) string {
	if sess == nil {
		return "none"
	}
	return string(sess.Mode)
}
