package creator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/journal"
	"github.com/vreid/rpsls/internal/pkg/wallet"
)

var ErrJobNotFound = errors.New("job not found")

// Journal records games once they exist on chain.
type Journal interface {
	RecordCreated(entry journal.Entry) error
}

type job struct {
	Job

	secret   *Secret
	revealed bool
}

type CreatorService struct {
	sync.Mutex

	Flow    *Flow
	Journal Journal
	Logger  echo.Logger

	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCreatorService(i do.Injector) (*CreatorService, error) {
	walletService := do.MustInvoke[*wallet.WalletService](i)
	journalSink := do.MustInvokeNamed[journal.Sink](i, "journal-sink")

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	result := New(NewFlow(walletService), journalSink, echoService.Logger())

	echoService.Register(result.Register)

	return result, nil
}

func New(flow *Flow, j Journal, logger echo.Logger) *CreatorService {
	ctx, cancel := context.WithCancel(context.Background())

	return &CreatorService{
		Flow:    flow,
		Journal: j,
		Logger:  logger,
		jobs:    map[string]*job{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *CreatorService) Register(e *echo.Echo) {
	gamesGroup := e.Group("/api/games")

	gamesGroup.POST("", s.PostGame)
	gamesGroup.GET("/jobs/:id", s.GetJob)
}

// Submit validates the request and starts creating the game in the
// background, returning the job id.
func (s *CreatorService) Submit(ctx context.Context, request GameRequest) (string, error) {
	plan, err := Validate(request)
	if err != nil {
		return "", err
	}

	err = s.Flow.Wallet.Ensure(ctx)
	if err != nil {
		//nolint:wrapcheck
		return "", err
	}

	_jobID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate job ID: %w", err)
	}

	jobID := _jobID.String()

	s.Lock()
	s.jobs[jobID] = &job{
		Job: Job{
			ID:     jobID,
			Status: JobRunning,
		},
	}
	s.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.run(jobID, *plan)
	}()

	return jobID, nil
}

func (s *CreatorService) run(jobID string, plan Plan) {
	secret, err := s.Flow.Run(s.ctx, plan, func(progress string) {
		s.Lock()
		defer s.Unlock()

		s.jobs[jobID].Progress = progress
	})

	s.Lock()
	defer s.Unlock()

	current := s.jobs[jobID]
	current.Progress = ""

	if err != nil {
		current.Status = JobFailed
		current.Error = &common.ErrorBody{
			Kind:    common.KindOf(err).String(),
			Message: common.NormalizeMessage(err),
		}

		if s.Logger != nil {
			s.Logger.Warnf("failed to create game: %v", err)
		}

		return
	}

	current.Status = JobSucceeded
	current.Address = secret.Address
	current.secret = secret

	if s.Journal == nil {
		return
	}

	err = s.Journal.RecordCreated(journal.Entry{
		Address:  secret.Address,
		Peer:     plan.Peer.Hex(),
		StakeWei: plan.Stake.String(),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warnf("failed to journal game %s: %v", secret.Address, err)
	}
}

// Status returns the job; the secret of a finished job is included the first
// time only.
func (s *CreatorService) Status(jobID string) (*Job, error) {
	s.Lock()
	defer s.Unlock()

	current, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	result := current.Job

	if current.secret != nil && !current.revealed {
		result.Secret = current.secret
		current.revealed = true
		current.secret = nil
	}

	return &result, nil
}

// Wait blocks until every running job has finished.
func (s *CreatorService) Wait() {
	s.wg.Wait()
}

func (s *CreatorService) Shutdown() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

func (s *CreatorService) PostGame(c echo.Context) error {
	var request GameRequest

	err := c.Bind(&request)
	if err != nil {
		return common.HTTPError(common.MalformedInput("failed to parse request"))
	}

	jobID, err := s.Submit(c.Request().Context(), request)
	if err != nil {
		return common.HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusAccepted, JobCreated{
		JobID:    jobID,
		Location: "/api/games/jobs/" + jobID,
	})
}

func (s *CreatorService) GetJob(c echo.Context) error {
	current, err := s.Status(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, current)
}
