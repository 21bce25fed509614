package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"go.etcd.io/bbolt"
)

var (
	ErrGamesBucketNotFound = errors.New("games bucket doesn't exist")
	ErrSeenBucketNotFound  = errors.New("seen bucket doesn't exist")
)

type JournalService struct {
	DatabaseService *common.DatabaseService

	EventSource <-chan Event

	Logger echo.Logger
	Now    func() time.Time
}

func NewJournalService(i do.Injector) (*JournalService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	eventSource := do.MustInvokeNamed[<-chan Event](i, "journal-source")

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	result := &JournalService{
		DatabaseService: databaseService,

		EventSource: eventSource,

		Logger: echoService.Logger(),
		Now:    time.Now,
	}

	echoService.Register(result.Register)

	return result, nil
}

func (s *JournalService) Register(e *echo.Echo) {
	e.GET("/api/games", s.GetGames)
}

func (s *JournalService) Start() {
	go s.processEvents()
}

// HandleEvent writes one event.
func (s *JournalService) HandleEvent(event Event) error {
	entry := event.Entry
	now := s.Now()

	//nolint:wrapcheck
	return s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		games := tx.Bucket([]byte(common.JournalGamesBucket))
		if games == nil {
			return ErrGamesBucketNotFound
		}

		seen := tx.Bucket([]byte(common.JournalSeenBucket))
		if seen == nil {
			return ErrSeenBucketNotFound
		}

		key := []byte(entry.Address)

		if entry.Kind == KindCreated || games.Get(key) == nil {
			entry.Created = now

			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to marshal entry: %w", err)
			}

			err = games.Put(key, data)
			if err != nil {
				return fmt.Errorf("failed to put entry: %w", err)
			}
		}

		err := seen.Put(key, common.Int64ToBytes(now.Unix()))
		if err != nil {
			return fmt.Errorf("failed to put last seen: %w", err)
		}

		return nil
	})
}

func (s *JournalService) processEvents() {
	for event := range s.EventSource {
		err := s.HandleEvent(event)
		if err != nil && s.Logger != nil {
			s.Logger.Warnf("failed to journal game %s: %v", event.Entry.Address, err)
		}
	}
}

// List returns every journaled game, most recently seen first.
func (s *JournalService) List() ([]Entry, error) {
	entries := []Entry{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		games := tx.Bucket([]byte(common.JournalGamesBucket))
		if games == nil {
			return ErrGamesBucketNotFound
		}

		seen := tx.Bucket([]byte(common.JournalSeenBucket))
		if seen == nil {
			return ErrSeenBucketNotFound
		}

		return games.ForEach(func(k, v []byte) error {
			var entry Entry

			err := json.Unmarshal(v, &entry)
			if err != nil {
				return fmt.Errorf("failed to unmarshal entry %s: %w", k, err)
			}

			entry.LastSeen = time.Unix(common.BytesToInt64(seen.Get(k), entry.Created.Unix()), 0)
			entries = append(entries, entry)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].LastSeen.After(entries[b].LastSeen)
	})

	return entries, nil
}

func (s *JournalService) GetGames(c echo.Context) error {
	entries, err := s.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list games")
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, entries)
}
