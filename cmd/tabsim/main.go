// tabsim opens several simulated browser tabs for one signed-in user against
// a running notification server and prints each tab's unread count as pushed
// events and cross-tab sync messages arrive. Only the first tab subscribes to
// the live transport; the others converge purely through the sync bus.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-notify-sync/internal/client"
	"github.com/go-notify-sync/internal/realtime"
	"github.com/go-notify-sync/internal/session"
	"github.com/go-notify-sync/internal/store"
	"github.com/go-notify-sync/internal/syncbus"
	"github.com/go-notify-sync/internal/tab"
)

type logAlerter struct{ name string }

func (a logAlerter) Show(al realtime.Alert) {
	target := "(not clickable)"
	if al.Route != nil {
		target = al.Route.Path
	}
	log.Printf("[%s] alert: %s %s", a.name, al.Title, target)
}

func main() {
	var (
		baseURL  = flag.String("server", "http://localhost:3000", "notification server base URL")
		token    = flag.String("token", "", "bearer token for the signed-in user")
		tenantID = flag.String("tenant", "", "tenant id matching the token")
		userID   = flag.String("user", "", "user id matching the token")
		tabs     = flag.Int("tabs", 3, "number of simulated tabs")
	)
	flag.Parse()

	if *token == "" || *tenantID == "" || *userID == "" {
		log.Fatal("-token, -tenant and -user are required")
	}

	bus := syncbus.Shared()
	api := client.New(*baseURL, *token)
	auth := session.AuthState{
		IsAuthenticated: true,
		User:            session.User{ID: *userID, TenantID: *tenantID},
	}

	opened := make([]*tab.Tab, 0, *tabs)
	for i := 0; i < *tabs; i++ {
		name := fmt.Sprintf("tab-%d", i+1)
		opts := tab.Options{
			Bus:     bus,
			Alerter: logAlerter{name: name},
			API:     api,
		}
		// Tabs beyond the first stay off the live transport on purpose:
		// their state converges through the sync bus alone.
		if i == 0 {
			opts.Transport = realtime.NewSSETransport(*baseURL, *token)
		}
		t := tab.New(opts)
		t.Store.Subscribe(func(snap store.Snapshot) {
			log.Printf("[%s] unread=%d held=%d", name, snap.UnreadCount, len(snap.Notifications))
		})
		t.SignIn(auth)
		opened = append(opened, t)
	}

	log.Printf("%d tabs open for %s; create notifications against %s to watch them converge", *tabs, *userID, *baseURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	for _, t := range opened {
		t.Close()
	}
}
