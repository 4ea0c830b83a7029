// internal/game/registry.go
package game

import (
	"crypto/rand"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"chaarchitti/internal/models"
)

// codeAlphabet is the room-code character set. Six characters over 36 symbols
// gives ~2.2e9 codes, plenty for the expected concurrent-room count.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// Registry owns the collection of live rooms: creation with unique codes,
// lookup, and eviction of emptied lobbies. It holds no game state itself;
// rooms guard their own.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	config models.RoomConfig
	log    logrus.FieldLogger

	// OnCreate runs on every new room before its first member is seated. The
	// transport layer uses it to attach broadcast callbacks.
	OnCreate func(*Room)
}

// NewRegistry returns an empty registry using the default room configuration.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		config: models.DefaultRoomConfig(),
		log:    logger,
	}
}

// CreateRoom registers a new room and seats its creator as host.
func (s *Registry) CreateRoom(hostName string, conn *websocket.Conn) (*Room, *models.Player, error) {
	s.mu.Lock()
	code := s.generateCodeLocked()
	room := newRoom(code, s.config, s.log)
	room.OnEmpty = s.Remove
	if s.OnCreate != nil {
		s.OnCreate(room)
	}
	s.rooms[code] = room
	s.mu.Unlock()

	host, err := room.Join(hostName, conn)
	if err != nil {
		s.Remove(code)
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{"room": code, "host": host.ID}).Info("room created")
	return room, host, nil
}

// JoinRoom seats a player in an existing room, or resumes their seat when the
// display name matches an existing one.
func (s *Registry) JoinRoom(code, playerName string, conn *websocket.Conn) (*Room, *models.Player, error) {
	room, err := s.Get(code)
	if err != nil {
		return nil, nil, err
	}
	p, err := room.Join(playerName, conn)
	if err != nil {
		return nil, nil, err
	}
	return room, p, nil
}

// Get looks up a live room by code.
func (s *Registry) Get(code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, reject(CodeRoomNotFound, "room not found")
	}
	return room, nil
}

// Remove deletes a room from the registry. Wired as each room's OnEmpty
// callback so emptied lobbies evict themselves.
func (s *Registry) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		s.log.WithField("room", code).Info("room removed")
	}
}

// Count returns the number of live rooms.
func (s *Registry) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// generateCodeLocked draws uniform random codes until one misses every live
// room. Assumes the registry lock is held.
func (s *Registry) generateCodeLocked() string {
	// Bytes at or above the largest multiple of the alphabet size are
	// rejected, otherwise the modulo would skew toward the early characters.
	limit := 256 - 256%len(codeAlphabet)
	buf := make([]byte, 1)
	code := make([]byte, codeLength)
	for {
		for i := 0; i < codeLength; {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand unavailable: " + err.Error())
			}
			if int(buf[0]) >= limit {
				continue
			}
			code[i] = codeAlphabet[int(buf[0])%len(codeAlphabet)]
			i++
		}
		if _, taken := s.rooms[string(code)]; !taken {
			return string(code)
		}
	}
}
