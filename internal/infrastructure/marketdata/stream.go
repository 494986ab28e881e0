package marketdata

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

const AlpacaStreamURL = "wss://stream.data.alpaca.markets/v2/iex"

// StreamClient subscribes to the Alpaca market-data websocket and fans trade
// prints out to registered callbacks. It keeps the quote service's live price
// table warm so cycle-time lookups skip the REST round trip.
type StreamClient struct {
	url       string
	apiKey    string
	apiSecret string
	conn      *websocket.Conn
	callbacks []func(symbol string, price float64)
	mu        sync.Mutex
}

func NewStreamClient(url, apiKey, apiSecret string) *StreamClient {
	if url == "" {
		url = AlpacaStreamURL
	}
	return &StreamClient{
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

func (s *StreamClient) OnPriceUpdate(callback func(symbol string, price float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// Connect dials the stream, authenticates, starts the read loop and
// subscribes to trade prints for the given symbols.
func (s *StreamClient) Connect(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.subscribe(symbols)
	}

	c, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}
	s.conn = c

	authMsg := map[string]interface{}{
		"action": "auth",
		"key":    s.apiKey,
		"secret": s.apiSecret,
	}
	if err := c.WriteJSON(authMsg); err != nil {
		c.Close()
		s.conn = nil
		return err
	}

	go s.readLoop(c)

	return s.subscribe(symbols)
}

func (s *StreamClient) Subscribe(symbols []string) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return s.Connect(symbols)
	}
	defer s.mu.Unlock()
	return s.subscribe(symbols)
}

func (s *StreamClient) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	subMsg := map[string]interface{}{
		"action": "subscribe",
		"trades": symbols,
	}
	return s.conn.WriteJSON(subMsg)
}

func (s *StreamClient) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *StreamClient) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Println("stream read error:", err)
			return
		}

		// Alpaca wraps every frame in a JSON array.
		var events []struct {
			Type   string  `json:"T"`
			Msg    string  `json:"msg"`
			Symbol string  `json:"S"`
			Price  float64 `json:"p"`
		}
		if err := json.Unmarshal(message, &events); err != nil {
			log.Println("stream unmarshal error:", err)
			continue
		}

		for _, ev := range events {
			switch ev.Type {
			case "t":
				if ev.Symbol == "" || ev.Price <= 0 {
					continue
				}
				s.mu.Lock()
				callbacks := make([]func(string, float64), len(s.callbacks))
				copy(callbacks, s.callbacks)
				s.mu.Unlock()

				for _, cb := range callbacks {
					cb(ev.Symbol, ev.Price)
				}
			case "error":
				log.Println("stream error message:", ev.Msg)
			}
		}
	}
}
