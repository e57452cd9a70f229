package local_test

import (
	"context"
	"database/sql"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/provider/local"
	"github.com/amami1625/pondana-sub000/ratelimit"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const origin = "https://pondana.example"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mailbox struct {
	mu       sync.Mutex
	messages []local.Message
}

func (m *mailbox) Send(_ context.Context, msg local.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mailbox) All() []local.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]local.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *mailbox) Last(t *testing.T, kind local.MessageKind) local.Message {
	t.Helper()
	all := m.All()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == kind {
			return all[i]
		}
	}
	t.Fatalf("no %s message sent", kind)
	return local.Message{}
}

type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Types() []auth.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType)
	}
	return out
}

type harness struct {
	provider *local.Provider
	mail     *mailbox
	sink     *capturingSink
	clock    *testClock
	redis    *miniredis.Miniredis
}

var (
	signInPolicy = ratelimit.Policy{Name: "sign_in", Limit: 3, Window: time.Minute}
	emailPolicy  = ratelimit.Policy{Name: "email_send", Limit: 2, Window: time.Hour}
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	// a private in-memory database lives as long as its one connection
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T, opts ...local.Option) *harness {
	t.Helper()

	tokens, err := local.NewTokenService(local.TokenConfig{
		SigningKeyID: "k1",
		Keys:         map[string][]byte{"k1": []byte("test-signing-key")},
		Issuer:       "pondana-test",
		TTL:          time.Hour,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mail:  &mailbox{},
		sink:  &capturingSink{},
		clock: &testClock{now: time.Now().UTC().Truncate(time.Second)},
		redis: mr,
	}

	base := []local.Option{
		local.WithPasswordCost(bcrypt.MinCost),
		local.WithMailer(h.mail),
		local.WithActivitySink(h.sink),
		local.WithClock(h.clock.Now),
		local.WithSiteURL(origin),
		local.WithRateLimiter(ratelimit.New(rdb, "test"), signInPolicy, emailPolicy),
	}

	h.provider = local.New(newTestDB(t), tokens, append(base, opts...)...)
	require.NoError(t, h.provider.Migrate(context.Background()))
	return h
}

func (h *harness) browser() (*local.Client, *session.MemoryStorage) {
	storage := session.NewMemoryStorage()
	return h.provider.Client(storage), storage
}

func (h *harness) signUp(t *testing.T, email, password string) *local.Client {
	t.Helper()
	client, _ := h.browser()
	_, err := client.SignUp(context.Background(), auth.Credentials{Email: email, Password: password}, auth.SignUpOptions{
		Data: map[string]any{"name": "Reader"},
	})
	require.NoError(t, err)
	return client
}

func secretFrom(t *testing.T, link string) (secret, otpType, next string) {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	return q.Get("token_hash"), q.Get("type"), q.Get("next")
}
