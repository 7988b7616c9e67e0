/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"

	"courier/internal/event"
	"courier/internal/nlog"
)

// Frame verbs of the relay protocol.
const (
	verbSubscribe = "SUB"
	verbClose     = "CLOSE"
	verbRequest   = "REQ"
	verbEvent     = "EVENT"
	verbEOSE      = "EOSE"
)

const pollInterval = 100 * time.Millisecond

type subscription struct {
	onEvent func(*event.Event)
	onEOSE  func()
	eose    bool
}

// Client is the ZeroMQ implementation of Transport. A DEALER socket carries
// the live subscription stream; the socket is owned by a single poll loop
// goroutine and outgoing frames are queued through a channel, since ZMQ
// sockets must not be shared between goroutines. Bulk queries use a separate
// REQ socket per call.
type Client struct {
	address string
	logger  nlog.Logger

	dealer *zmq.Socket
	sendq  chan [][]byte
	done   chan struct{}
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs map[Handle]*subscription
}

func getFullAddress(address string) string {
	return fmt.Sprintf("tcp://%s", address)
}

// NewClient connects to the relay at address and starts the poll loop.
func NewClient(address string, logger nlog.Logger) (*Client, error) {
	dealer, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, fmt.Errorf("Error during the creation of the dealer ZMQ4 socket: %v", err)
	}
	if err := dealer.SetIdentity(uuid.New().String()); err != nil {
		dealer.Close()
		return nil, fmt.Errorf("Could not set identity for the dealer socket: %v", err)
	}
	if err := dealer.Connect(getFullAddress(address)); err != nil {
		dealer.Close()
		return nil, fmt.Errorf("Could not connect to relay %s: %v", address, err)
	}

	c := &Client{
		address: address,
		logger:  logger,
		dealer:  dealer,
		sendq:   make(chan [][]byte, 64),
		done:    make(chan struct{}),
		subs:    make(map[Handle]*subscription),
	}

	c.wg.Add(1)
	go c.loop()
	return c, nil
}

// Subscribe registers the callbacks and asks the relay to start streaming.
func (c *Client) Subscribe(filters []Filter, onEvent func(*event.Event), onEOSE func()) (Handle, error) {
	payload, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}

	handle := Handle(uuid.New().String())
	c.mu.Lock()
	c.subs[handle] = &subscription{onEvent: onEvent, onEOSE: onEOSE}
	c.mu.Unlock()

	if err := c.enqueue([][]byte{[]byte(verbSubscribe), []byte(handle), payload}); err != nil {
		c.mu.Lock()
		delete(c.subs, handle)
		c.mu.Unlock()
		return "", err
	}

	c.logger.Logf("Subscribed %s on relay %s", handle, c.address)
	return handle, nil
}

// Unsubscribe stops the stream and forgets the callbacks.
func (c *Client) Unsubscribe(handle Handle) error {
	c.mu.Lock()
	_, known := c.subs[handle]
	delete(c.subs, handle)
	c.mu.Unlock()

	if !known {
		return fmt.Errorf("Unknown subscription %s", handle)
	}
	return c.enqueue([][]byte{[]byte(verbClose), []byte(handle)})
}

// Query opens a dedicated DEALER socket, sends the filters and collects events
// until the relay signals the end of stored events or the deadline passes.
// A DEALER is used instead of REQ so a timed-out query does not leave the
// socket stuck mid send/recv alternation. Partial results are returned on
// timeout.
func (c *Client) Query(filters []Filter, timeout time.Duration) ([]*event.Event, error) {
	payload, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}

	req, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, fmt.Errorf("Error during the creation of the query ZMQ4 socket: %v", err)
	}
	defer req.Close()

	if err := req.SetIdentity(uuid.New().String()); err != nil {
		return nil, fmt.Errorf("Could not set identity for the query socket: %v", err)
	}
	if err := req.Connect(getFullAddress(c.address)); err != nil {
		return nil, fmt.Errorf("Could not connect to relay %s: %v", c.address, err)
	}

	queryID := uuid.New().String()
	if _, err := req.SendMessage(verbRequest, queryID, payload); err != nil {
		return nil, fmt.Errorf("Error during query send to relay %s: %v", c.address, err)
	}

	poller := zmq.NewPoller()
	poller.Add(req, zmq.POLLIN)

	deadline := time.Now().Add(timeout)
	var results []*event.Event
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.logger.Logf("Query %s timed out with %d events collected", queryID, len(results))
			return results, nil
		}

		polled, err := poller.Poll(remaining)
		if err != nil {
			return results, err
		}
		if len(polled) == 0 {
			continue
		}

		frames, err := req.RecvMessageBytes(0)
		if err != nil {
			return results, err
		}
		verb, _, body := splitFrames(frames)
		switch verb {
		case verbEOSE:
			return results, nil
		case verbEvent:
			var ev event.Event
			if err := json.Unmarshal(body, &ev); err != nil {
				c.logger.Logf("Discarding undecodable event from query %s: %v", queryID, err)
				continue
			}
			results = append(results, &ev)
		}
	}
}

// Close shuts the poll loop down and releases the socket.
func (c *Client) Close() {
	close(c.done)
	c.wg.Wait()
}

func (c *Client) enqueue(frames [][]byte) error {
	select {
	case c.sendq <- frames:
		return nil
	case <-c.done:
		return fmt.Errorf("relay client is closed")
	}
}

// loop owns the dealer socket: it alternates draining the send queue and
// polling for inbound frames, and dispatches events to subscription callbacks.
func (c *Client) loop() {
	defer c.wg.Done()
	defer c.dealer.Close()

	poller := zmq.NewPoller()
	poller.Add(c.dealer, zmq.POLLIN)

	for {
		select {
		case <-c.done:
			return
		case frames := <-c.sendq:
			if _, err := c.dealer.SendMessage(frames); err != nil {
				c.logger.Logf("Error during send to relay %s: %v", c.address, err)
			}
			continue
		default:
		}

		polled, err := poller.Poll(pollInterval)
		if err != nil {
			c.logger.Logf("Poll error on relay %s: %v", c.address, err)
			return
		}
		if len(polled) == 0 {
			continue
		}

		frames, err := c.dealer.RecvMessageBytes(0)
		if err != nil {
			c.logger.Logf("Recv error on relay %s: %v", c.address, err)
			continue
		}
		c.dispatch(frames)
	}
}

func (c *Client) dispatch(frames [][]byte) {
	verb, handle, body := splitFrames(frames)

	c.mu.Lock()
	sub := c.subs[Handle(handle)]
	c.mu.Unlock()
	if sub == nil {
		return
	}

	switch verb {
	case verbEvent:
		var ev event.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			c.logger.Logf("Discarding undecodable event on subscription %s: %v", handle, err)
			return
		}
		sub.onEvent(&ev)
	case verbEOSE:
		if !sub.eose && sub.onEOSE != nil {
			sub.eose = true
			sub.onEOSE()
		}
	}
}

// splitFrames normalizes a multipart message into (verb, subscription id,
// payload), tolerating an empty delimiter frame in front.
func splitFrames(frames [][]byte) (string, string, []byte) {
	if len(frames) > 0 && len(frames[0]) == 0 {
		frames = frames[1:]
	}
	switch len(frames) {
	case 0:
		return "", "", nil
	case 1:
		return string(frames[0]), "", nil
	case 2:
		return string(frames[0]), string(frames[1]), nil
	default:
		return string(frames[0]), string(frames[1]), frames[2]
	}
}
