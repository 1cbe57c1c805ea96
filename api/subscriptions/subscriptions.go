// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/api/utils"
	"github.com/stakewell/stakewell/log"
	"github.com/stakewell/stakewell/pool"
	"github.com/stakewell/stakewell/stakewell"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// send buffer per connection; a slow reader past this drops the conn
	eventChanSize = 256
	pingPeriod    = 10 * time.Second
	writeTimeout  = 10 * time.Second
)

// Subscriptions streams committed ledger events over websocket.
type Subscriptions struct {
	engine   *pool.Engine
	upgrader websocket.Upgrader
	done     chan struct{}
}

func New(engine *pool.Engine, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		engine: engine,
		upgrader: websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// Close terminates all active subscription connections.
func (s *Subscriptions) Close() {
	close(s.done)
}

// handleSubscribeEvents streams every committed event, optionally
// filtered by the ?pool= query parameter.
func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	var filter *stakewell.Address
	if q := req.URL.Query().Get("pool"); q != "" {
		addr, err := stakewell.ParseAddress(q)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "pool"))
		}
		filter = &addr
	}

	events := make(chan pool.Event, eventChanSize)
	sub := s.engine.SubscribeEvents(events)
	defer sub.Unsubscribe()

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has written the response already
		logger.Debug("upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	// drain reads so close frames and pongs are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case <-req.Context().Done():
			return nil
		case err := <-sub.Err():
			return err
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case ev := <-events:
			if filter != nil && ev.Pool != *filter {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(&ev); err != nil {
				logger.Debug("subscriber write failed", "err", err)
				return nil
			}
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
