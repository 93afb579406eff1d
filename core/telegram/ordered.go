package telegram

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const (
	// DefaultUpdateShards is the number of update workers when none is given.
	DefaultUpdateShards = 8
	updateShardQueue    = 64
)

// OrderedPoller fans updates from an inner poller out to sharded workers keyed
// by chat, so updates of one chat are handled one at a time in arrival order
// while different chats proceed in parallel. The bot must be synchronous;
// otherwise telebot starts every handler on its own goroutine again.
type OrderedPoller struct {
	Inner  tele.Poller
	Shards int

	// process handles one update; nil means the bot's ProcessUpdate.
	process func(tele.Update)
}

// Ordered wraps inner in an OrderedPoller with n shards.
func Ordered(inner tele.Poller, n int) *OrderedPoller {
	return &OrderedPoller{Inner: inner, Shards: n}
}

// Poll implements tele.Poller. Updates are taken from the inner poller instead of
// being forwarded to dest. After stop it drains what the inner poller still
// delivers and waits for the workers to finish.
func (p *OrderedPoller) Poll(b *tele.Bot, _ chan tele.Update, stop chan struct{}) {
	process := p.process
	if process == nil {
		process = b.ProcessUpdate
	}
	n := p.Shards
	if n <= 0 {
		n = DefaultUpdateShards
	}

	var wg sync.WaitGroup
	shards := make([]chan tele.Update, n)
	for i := range shards {
		shards[i] = make(chan tele.Update, updateShardQueue)
		wg.Add(1)
		go func(jobs <-chan tele.Update) {
			defer wg.Done()
			for u := range jobs {
				process(u)
			}
		}(shards[i])
	}
	defer func() {
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
	}()

	in := make(chan tele.Update, updateShardQueue)
	innerStop := make(chan struct{})
	innerDone := make(chan struct{})
	go func() {
		defer close(innerDone)
		p.Inner.Poll(b, in, innerStop)
	}()

	route := func(u tele.Update) {
		shards[shardOf(UpdateChatID(u), n)] <- u
	}
	for {
		select {
		case u := <-in:
			route(u)
		case <-stop:
			close(innerStop)
			drain(in, innerDone, route)
			return
		}
	}
}

// drain keeps routing updates until the inner poller returned and its buffer is empty.
func drain(in chan tele.Update, done <-chan struct{}, route func(tele.Update)) {
	for {
		select {
		case u := <-in:
			route(u)
		case <-done:
			for len(in) > 0 {
				route(<-in)
			}
			return
		}
	}
}

func shardOf(key int64, n int) int {
	return int(uint64(key) % uint64(n))
}

// UpdateChatID returns the chat an update belongs to, falling back to its sender.
func UpdateChatID(u tele.Update) int64 {
	switch {
	case u.Message != nil:
		if u.Message.Chat != nil {
			return u.Message.Chat.ID
		}
		if u.Message.Sender != nil {
			return u.Message.Sender.ID
		}
	case u.Callback != nil:
		if m := u.Callback.Message; m != nil && m.Chat != nil {
			return m.Chat.ID
		}
		if u.Callback.Sender != nil {
			return u.Callback.Sender.ID
		}
	case u.EditedMessage != nil && u.EditedMessage.Chat != nil:
		return u.EditedMessage.Chat.ID
	}
	return 0
}

// innerPoller returns the poller an OrderedPoller wraps, or p itself.
func innerPoller(p tele.Poller) tele.Poller {
	if o, ok := p.(*OrderedPoller); ok {
		return o.Inner
	}
	return p
}
