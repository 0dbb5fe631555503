package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/client"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/config"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/repository"
)

var appNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

const minAppNameLength = 5

// Source tarballs and buildpacks per supported bot type
var botSources = map[string]string{
	models.BotTypeLevanter:   "https://github.com/lyfe00011/levanter/tarball/master",
	models.BotTypeRaganork:   "https://github.com/souravkl11/raganork-md/tarball/main",
	models.BotTypeWhatsasena: "https://github.com/Bhathiya404/Whatsasena/tarball/master",
}

var botBuildpacks = map[string][]string{
	models.BotTypeLevanter:   {"heroku/nodejs", "https://github.com/jonathanong/heroku-buildpack-ffmpeg-latest"},
	models.BotTypeRaganork:   {"heroku/nodejs", "https://github.com/jonathanong/heroku-buildpack-ffmpeg-latest"},
	models.BotTypeWhatsasena: {"heroku/nodejs"},
}

// DeployService drives the per-request deployment pipeline:
// Validating -> CreatingApp -> Building -> AwaitingConnection -> Live,
// or Failed(stage, reason). Stages of one request run strictly in
// sequence; requests for different app names are independent.
type DeployService struct {
	cfg       *config.Config
	platform  PlatformAPI
	chat      ChatMessenger
	bots      BotStore
	trials    TrialStore
	keys      DeployKeyStore
	logs      ActionLogger
	poller    *BuildPoller
	registry  *ConnectionRegistry
	scheduler *LifecycleScheduler
}

// NewDeployService creates a new deploy service
func NewDeployService(
	cfg *config.Config,
	platform PlatformAPI,
	chat ChatMessenger,
	bots BotStore,
	trials TrialStore,
	keys DeployKeyStore,
	logs ActionLogger,
	poller *BuildPoller,
	registry *ConnectionRegistry,
	scheduler *LifecycleScheduler,
) *DeployService {
	return &DeployService{
		cfg:       cfg,
		platform:  platform,
		chat:      chat,
		bots:      bots,
		trials:    trials,
		keys:      keys,
		logs:      logs,
		poller:    poller,
		registry:  registry,
		scheduler: scheduler,
	}
}

// Deploy validates the request and starts the pipeline. Validation is
// synchronous so the caller gets a typed error; the remaining stages
// run in the background and report through the progress message.
func (s *DeployService) Deploy(ctx context.Context, req *models.DeployRequest) (*models.DeployResponse, error) {
	log.Printf("[Deploy] Deployment requested: user=%s app=%s type=%s trial=%v",
		req.UserID, req.AppName, req.BotType, req.IsFreeTrial)

	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	_ = s.logs.LogAction(ctx, req.AppName, "deploy_started", models.StatusPending,
		fmt.Sprintf("Deployment started for %s bot %s", req.BotType, req.AppName))

	go s.deployAsync(req)

	return &models.DeployResponse{
		Success: true,
		AppName: req.AppName,
		Status:  models.StatusPending,
		Message: "Deployment started. Progress will be reported in chat.",
	}, nil
}

// validate enforces name format, bot type, trial cooldown and deploy
// key rules. The key decrement is the only side effect and it IS the
// validation success; everything else happens after this stage passes.
func (s *DeployService) validate(ctx context.Context, req *models.DeployRequest) error {
	if len(req.AppName) < minAppNameLength || !appNamePattern.MatchString(req.AppName) {
		return &ValidationError{Reason: fmt.Sprintf(
			"app name must be at least %d characters of lowercase letters, digits and dashes", minAppNameLength)}
	}

	if !models.IsBotTypeSupported(req.BotType) {
		return &ValidationError{Reason: "unsupported bot type: " + req.BotType}
	}

	if existing, err := s.bots.GetByAppName(ctx, req.AppName); err == nil && existing != nil {
		return &ValidationError{Reason: "app name is already in use"}
	}

	if req.IsFreeTrial {
		window, err := s.trials.Get(ctx, req.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check trial window: %w", err)
		}
		if window != nil && !window.CanStartTrial(time.Now(), s.cfg.Deploy.TrialCooldown) {
			eligibleAt := window.UsedAt.Add(s.cfg.Deploy.TrialCooldown)
			return &ValidationError{Reason: fmt.Sprintf(
				"free trial already used, next trial available at %s", eligibleAt.Format(time.RFC3339))}
		}
		return nil
	}

	if req.DeployKey == "" {
		return &ValidationError{Reason: "a deploy key is required for non-trial deployments"}
	}

	usesLeft, err := s.keys.Consume(ctx, req.DeployKey)
	if err != nil {
		// Exhausted keys present exactly like missing ones to the
		// user; the action log keeps the distinction.
		if errors.Is(err, repository.ErrKeyExhausted) {
			_ = s.logs.LogAction(ctx, req.AppName, "key_rejected", models.StatusPending, "deploy key exhausted")
			return &ValidationError{Reason: "invalid or expired deploy key"}
		}
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.logs.LogAction(ctx, req.AppName, "key_rejected", models.StatusPending, "deploy key not found")
			return &ValidationError{Reason: "invalid or expired deploy key"}
		}
		return fmt.Errorf("consume deploy key: %w", err)
	}

	log.Printf("[Deploy] Deploy key accepted for %s (%d uses left)", req.AppName, usesLeft)
	return nil
}

// deployAsync runs CreatingApp -> Building -> AwaitingConnection in
// the background. Every stage error is caught, stage-tagged and turned
// into one final user message plus one operator alert; nothing
// propagates as an unhandled failure.
func (s *DeployService) deployAsync(req *models.DeployRequest) {
	ctx := context.Background()

	progress := NewProgressMessage(ctx, s.chat, req.ChatID, s.cfg.Deploy.AnimationTick,
		fmt.Sprintf("Deploying %s", req.AppName))

	// CreatingApp
	progress.SetStage(ctx, fmt.Sprintf("Creating app %s", req.AppName))
	if err := s.createApp(ctx, req); err != nil {
		s.handleFailure(ctx, req, progress, &StageError{Stage: models.StageCreate, Err: err})
		return
	}
	_ = s.logs.LogAction(ctx, req.AppName, "app_created", models.StatusCreating, "Remote app created and configured")

	// Building
	progress.SetStage(ctx, fmt.Sprintf("Building %s", req.AppName))
	buildID, err := s.platform.TriggerBuild(ctx, req.AppName, botSources[req.BotType])
	if err != nil {
		s.handleFailure(ctx, req, progress, &StageError{Stage: models.StageBuild, Err: err})
		return
	}
	_ = s.logs.LogAction(ctx, req.AppName, "build_started", models.StatusBuilding, "Build "+buildID+" started")

	if err := s.poller.WaitForBuild(ctx, req.AppName, buildID); err != nil {
		// The created app is left in place for diagnosis
		s.handleFailure(ctx, req, progress, &StageError{Stage: models.StageBuild, Err: err})
		return
	}
	_ = s.logs.LogAction(ctx, req.AppName, "build_succeeded", models.StatusConnecting, "Build "+buildID+" succeeded")

	// AwaitingConnection
	progress.SetStage(ctx, fmt.Sprintf("Waiting for %s to come online", req.AppName))
	wait := s.registry.Register(req.AppName)
	connErr := wait.Wait(ctx)

	// A superseded pipeline goes quiet: the newer request owns the
	// app name, its record and all user feedback from here on.
	var superseded *SupersededError
	if errors.As(connErr, &superseded) {
		log.Printf("[Deploy] Deployment of %s superseded by a newer request", req.AppName)
		progress.Abandon()
		return
	}

	// The bot record is persisted on both connect outcomes: a broken
	// session is degraded, not rolled back, so the user can replace
	// the token later.
	s.persistBot(ctx, req, connErr)

	if connErr != nil {
		s.handleFailure(ctx, req, progress, &StageError{Stage: models.StageConnect, Err: connErr})
		return
	}

	// Live
	if req.IsFreeTrial {
		if err := s.trials.RecordUse(ctx, req.UserID); err != nil {
			log.Printf("[Deploy] Failed to record trial use for %s: %v", req.UserID, err)
		}
		s.scheduler.ScheduleWarning(req.AppName, req.UserID, req.ChatID, s.cfg.Deploy.TrialWarningAfter)
		s.scheduler.ScheduleDeletion(req.AppName, req.UserID, req.ChatID, s.cfg.Deploy.TrialDeleteAfter)
	}

	_ = s.logs.LogAction(ctx, req.AppName, "live", models.StatusLive, "Bot is live")
	progress.Finish(ctx, fmt.Sprintf("Bot %s is live.", req.AppName))
	log.Printf("[Deploy] Deployment complete: %s", req.AppName)
}

// createApp creates the remote app, installs buildpacks and writes
// config vars, in that order. Failures need no compensation: a taken
// name means nothing of ours was created.
func (s *DeployService) createApp(ctx context.Context, req *models.DeployRequest) error {
	if err := s.platform.CreateApp(ctx, req.AppName); err != nil {
		if client.IsNameTaken(err) {
			return fmt.Errorf("app name %s is already taken on the platform", req.AppName)
		}
		return err
	}
	if err := s.platform.InstallBuildpacks(ctx, req.AppName, botBuildpacks[req.BotType]); err != nil {
		return err
	}
	vars := map[string]string{
		"SESSION_ID":       req.SessionToken,
		"BOT_TYPE":         req.BotType,
		"AUTO_STATUS_VIEW": strconv.FormatBool(req.AutoStatusView),
	}
	return s.platform.SetConfigVars(ctx, req.AppName, vars)
}

// persistBot writes the ownership record after the connection stage
// resolves, live or degraded
func (s *DeployService) persistBot(ctx context.Context, req *models.DeployRequest, connErr error) {
	bot := &models.Bot{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		AppName:      req.AppName,
		BotType:      req.BotType,
		SessionToken: req.SessionToken,
		Status:       models.StatusLive,
		IsFreeTrial:  req.IsFreeTrial,
	}
	if connErr != nil {
		msg := connErr.Error()
		bot.Status = models.StatusFailed
		bot.Stage = models.StageConnect
		bot.ErrorMessage = &msg
	}
	if err := s.bots.Create(ctx, bot); err != nil {
		log.Printf("[Deploy] Failed to persist bot record for %s: %v", req.AppName, err)
		s.chat.NotifyOperator(ctx, fmt.Sprintf("Failed to persist bot record for %s: %v", req.AppName, err))
	}
}

// handleFailure converts a stage error into one final user-facing
// message and one operator alert
func (s *DeployService) handleFailure(ctx context.Context, req *models.DeployRequest, progress *ProgressMessage, stageErr *StageError) {
	log.Printf("[Deploy] Deployment of %s failed at stage %s: %v", req.AppName, stageErr.Stage, stageErr.Err)

	errMsg := stageErr.Err.Error()
	_ = s.logs.LogAction(ctx, req.AppName, "deploy_failed", models.StatusFailed,
		fmt.Sprintf("Stage %s: %s", stageErr.Stage, errMsg))

	userMsg := fmt.Sprintf("Deployment of %s failed during %s: %s", req.AppName, stageErr.Stage, errMsg)
	if stageErr.Stage == models.StageConnect {
		// Degraded, not dead: the record exists and the session can
		// be replaced.
		userMsg += "\nThe bot is saved; send a new session token to bring it online."
		if updErr := s.bots.UpdateStatus(ctx, req.AppName, models.StatusFailed, stageErr.Stage, &errMsg); updErr != nil {
			log.Printf("[Deploy] Failed to update bot status for %s: %v", req.AppName, updErr)
		}
	}
	progress.Finish(ctx, userMsg)

	s.chat.NotifyOperator(ctx, fmt.Sprintf("Deployment failed: app=%s user=%s stage=%s error=%s",
		req.AppName, req.UserID, stageErr.Stage, errMsg))
}

// SignalConnection is the entry point for the health-reporting
// collaborator. Returns whether a waiter existed.
func (s *DeployService) SignalConnection(appName, outcome, detail string) bool {
	return s.registry.Signal(appName, outcome, detail)
}

// ListBots returns a user's owned bots
func (s *DeployService) ListBots(ctx context.Context, userID string) ([]*models.Bot, error) {
	return s.bots.ListByUser(ctx, userID)
}

// DeleteBot removes a user's bot: pending lifecycle tasks are
// cancelled, then the shared deletion sequence runs
func (s *DeployService) DeleteBot(ctx context.Context, userID, appName string) (*models.DeleteBotResponse, error) {
	bot, err := s.bots.GetByAppName(ctx, appName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &models.DeleteBotResponse{Success: false, Message: "No bot found with that name."}, nil
		}
		return nil, err
	}
	if bot.UserID != userID {
		return &models.DeleteBotResponse{Success: false, Message: "No bot found with that name."}, nil
	}

	s.scheduler.Cancel(appName)
	s.scheduler.DeleteNow(ctx, appName, 0, "user initiated deletion")

	return &models.DeleteBotResponse{Success: true, Message: "Bot deleted."}, nil
}

// RestartBot restarts the dynos of a user's bot
func (s *DeployService) RestartBot(ctx context.Context, userID, appName string) (*models.RestartBotResponse, error) {
	bot, err := s.bots.GetByAppName(ctx, appName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &models.RestartBotResponse{Success: false, Message: "No bot found with that name."}, nil
		}
		return nil, err
	}
	if bot.UserID != userID {
		return &models.RestartBotResponse{Success: false, Message: "No bot found with that name."}, nil
	}

	if err := s.platform.RestartDynos(ctx, appName); err != nil {
		return &models.RestartBotResponse{Success: false, Message: fmt.Sprintf("Restart failed: %v", err)}, nil
	}

	_ = s.logs.LogAction(ctx, appName, "restarted", bot.Status, "Dynos restarted by user")
	return &models.RestartBotResponse{Success: true, Message: "Bot restarting."}, nil
}

// UpdateSession replaces the session token of a user's bot and
// restarts it so the new session takes effect. This is the recovery
// path for bots persisted in the degraded connect-failed state.
func (s *DeployService) UpdateSession(ctx context.Context, userID, appName, sessionToken string) (*models.UpdateSessionResponse, error) {
	bot, err := s.bots.GetByAppName(ctx, appName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &models.UpdateSessionResponse{Success: false, Message: "No bot found with that name."}, nil
		}
		return nil, err
	}
	if bot.UserID != userID {
		return &models.UpdateSessionResponse{Success: false, Message: "No bot found with that name."}, nil
	}

	if err := s.platform.SetConfigVars(ctx, appName, map[string]string{"SESSION_ID": sessionToken}); err != nil {
		return &models.UpdateSessionResponse{Success: false, Message: fmt.Sprintf("Failed to apply session token: %v", err)}, nil
	}
	if err := s.bots.UpdateSessionToken(ctx, appName, sessionToken); err != nil {
		return nil, err
	}
	if err := s.platform.RestartDynos(ctx, appName); err != nil {
		log.Printf("[Deploy] Restart after session update failed for %s: %v", appName, err)
	}
	if err := s.bots.UpdateStatus(ctx, appName, models.StatusConnecting, models.StageConnect, nil); err != nil {
		log.Printf("[Deploy] Failed to update bot status for %s: %v", appName, err)
	}

	_ = s.logs.LogAction(ctx, appName, "session_updated", models.StatusConnecting, "Session token replaced by user")
	return &models.UpdateSessionResponse{Success: true, Message: "Session updated, bot restarting."}, nil
}

// AppInfo fetches remote app details for diagnosis (admin use). A nil
// result means the app does not exist on the platform.
func (s *DeployService) AppInfo(ctx context.Context, appName string) (*client.AppInfo, error) {
	return s.platform.GetAppInfo(ctx, appName)
}

// TrialStatus reports free-trial eligibility for a user
func (s *DeployService) TrialStatus(ctx context.Context, userID string) (*models.TrialStatusResponse, error) {
	window, err := s.trials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &models.TrialStatusResponse{TrialAvailable: true, TrialUsed: false}, nil
		}
		return nil, err
	}

	resp := &models.TrialStatusResponse{
		TrialUsed: true,
		UsedAt:    window.UsedAt.Format(time.RFC3339),
	}
	if window.CanStartTrial(time.Now(), s.cfg.Deploy.TrialCooldown) {
		resp.TrialAvailable = true
	} else {
		resp.EligibleAt = window.UsedAt.Add(s.cfg.Deploy.TrialCooldown).Format(time.RFC3339)
	}
	return resp, nil
}
