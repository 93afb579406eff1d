package telegram

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

// feedPoller delivers a fixed batch of updates and then waits for stop.
type feedPoller struct{ updates []tele.Update }

func (f feedPoller) Poll(_ *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	for _, u := range f.updates {
		dest <- u
	}
	<-stop
}

// interleaved builds perChat text updates for every chat, alternating between chats.
func interleaved(chats []int64, perChat int) []tele.Update {
	ups := make([]tele.Update, 0, len(chats)*perChat)
	id := 0
	for i := range perChat {
		for _, chat := range chats {
			id++
			ups = append(ups, tele.Update{ID: id, Message: &tele.Message{
				ID:     id,
				Text:   fmt.Sprintf("answer %d", i),
				Chat:   &tele.Chat{ID: chat},
				Sender: &tele.User{ID: chat},
			}})
		}
	}
	return ups
}

type arrivals struct {
	mu     sync.Mutex
	byChat map[int64][]int
}

func (a *arrivals) add(chat int64, seq int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.byChat == nil {
		a.byChat = make(map[int64][]int)
	}
	a.byChat[chat] = append(a.byChat[chat], seq)
}

func (a *arrivals) assertInOrder(t *testing.T, chats []int64, perChat int) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, chat := range chats {
		got := a.byChat[chat]
		require.Len(t, got, perChat, "chat %d", chat)
		for i := 1; i < len(got); i++ {
			require.Less(t, got[i-1], got[i], "chat %d handled update %d before %d", chat, got[i], got[i-1])
		}
	}
}

func TestOrderedPollerKeepsChatOrder(t *testing.T) {
	chats := []int64{101, -2002, 303, 404}
	const perChat = 500

	var seen arrivals
	p := Ordered(feedPoller{updates: interleaved(chats, perChat)}, 3)
	p.process = func(u tele.Update) {
		if u.ID%5 == 0 {
			time.Sleep(20 * time.Microsecond)
		}
		seen.add(u.Message.Chat.ID, u.ID)
	}

	stop := make(chan struct{})
	close(stop)
	p.Poll(nil, nil, stop)

	seen.assertInOrder(t, chats, perChat)
}

func TestSynchronousBotHandlesChatInArrivalOrder(t *testing.T) {
	chats := []int64{7, 8}
	const perChat = 300

	bot, err := tele.NewBot(tele.Settings{
		Offline:     true,
		Synchronous: true,
		Poller:      Ordered(feedPoller{updates: interleaved(chats, perChat)}, 2),
	})
	require.NoError(t, err)

	var seen arrivals
	bot.Handle(tele.OnText, func(c tele.Context) error {
		if c.Message().ID%3 == 0 {
			time.Sleep(20 * time.Microsecond)
		}
		seen.add(c.Chat().ID, c.Message().ID)
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	require.Eventually(t, func() bool {
		seen.mu.Lock()
		defer seen.mu.Unlock()
		return len(seen.byChat[7])+len(seen.byChat[8]) == len(chats)*perChat
	}, 5*time.Second, 5*time.Millisecond)
	bot.Stop()
	<-done

	seen.assertInOrder(t, chats, perChat)
}

func TestSettingsRunHandlersInOrder(t *testing.T) {
	s := Settings(&coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}})
	assert.True(t, s.Synchronous)
	p, ok := s.Poller.(*OrderedPoller)
	require.True(t, ok)
	assert.Equal(t, DefaultUpdateShards, p.Shards)
	assert.IsType(t, &tele.LongPoller{}, p.Inner)
	assert.IsType(t, &tele.LongPoller{}, innerPoller(s.Poller))
}

func TestUpdateChatID(t *testing.T) {
	cases := map[string]struct {
		upd  tele.Update
		want int64
	}{
		"message":          {tele.Update{Message: &tele.Message{Chat: &tele.Chat{ID: -100}}}, -100},
		"message no chat":  {tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 5}}}, 5},
		"callback":         {tele.Update{Callback: &tele.Callback{Message: &tele.Message{Chat: &tele.Chat{ID: 9}}}}, 9},
		"inline callback":  {tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 11}}}, 11},
		"edited message":   {tele.Update{EditedMessage: &tele.Message{Chat: &tele.Chat{ID: 12}}}, 12},
		"unrelated update": {tele.Update{}, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, UpdateChatID(tc.upd))
		})
	}
	for _, key := range []int64{-1002003004, -1, 0, 42} {
		n := shardOf(key, 3)
		assert.True(t, n >= 0 && n < 3, "shard %d for key %d", n, key)
	}
}
