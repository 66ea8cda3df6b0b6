package services

import (
	"context"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/poirotw66/risk-dice--risky-dice/internal/config"
	"github.com/poirotw66/risk-dice--risky-dice/internal/dice"
	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
	"github.com/poirotw66/risk-dice--risky-dice/internal/store"
)

var ErrRateLimited = errors.New("roll rate limit exceeded")

// GameEngine owns every roll in flight. The outcome of a roll is fixed the
// moment it starts; the animation that follows is theater, driven here so the
// client cannot influence it.
type GameEngine struct {
	redisService *RedisService
	store        *store.Store
	cfg          *config.Config
	faces        []geom.Face
	broadcaster  Broadcaster

	mu          sync.Mutex
	serverSeed  string
	activeRolls map[string]*RollInstance // keyed by player ID, one roll each
}

type RollInstance struct {
	Roll       *models.Roll
	Die        *dice.Die
	PlayerName string
	Outcome    models.Outcome
	Global     models.GlobalStreak
	StartedAt  time.Time
	LastUpdate time.Time
	LastFrame  dice.Frame
	IsRunning  bool
	StopChan   chan struct{}
}

func NewGameEngine(cfg *config.Config, redisService *RedisService, st *store.Store) (*GameEngine, error) {
	faces, err := geom.Icosahedron(1)
	if err != nil {
		return nil, fmt.Errorf("failed to build die geometry: %v", err)
	}

	seed, err := generateServerSeed()
	if err != nil {
		return nil, err
	}

	return &GameEngine{
		redisService: redisService,
		store:        st,
		cfg:          cfg,
		faces:        faces,
		serverSeed:   seed,
		activeRolls:  make(map[string]*RollInstance),
	}, nil
}

// SetBroadcaster attaches the websocket layer after construction. The handler
// needs the engine and the engine needs the handler, so one side is wired late.
func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	ge.broadcaster = b
}

func generateServerSeed() (string, error) {
	bytes := make([]byte, 32)
	if _, err := crand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

func hashSeed(seed string) string {
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:])
}

// GetServerHash returns the commitment for the current server seed. Players
// record it before rolling and check it once the seed is revealed.
func (ge *GameEngine) GetServerHash() string {
	ge.mu.Lock()
	seed := ge.serverSeed
	ge.mu.Unlock()

	return hashSeed(seed)
}

// RotateServerSeed retires the current seed and installs a fresh one. The
// retired seed is returned so players can verify every roll made under it.
func (ge *GameEngine) RotateServerSeed() (string, string, error) {
	seed, err := generateServerSeed()
	if err != nil {
		return "", "", err
	}

	ge.mu.Lock()
	old := ge.serverSeed
	ge.serverSeed = seed
	ge.mu.Unlock()

	return old, hashSeed(seed), nil
}

// fairFloat maps an HMAC of the message to [0, 1). First 52 bits (13 hex
// characters) of the digest, same construction as the classic crash games.
func fairFloat(serverSeed, message string) float64 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	hash := hex.EncodeToString(h.Sum(nil))

	n := new(big.Int)
	n.SetString(hash[:13], 16)

	return float64(n.Int64()) / math.Pow(2, 52)
}

// deriveRoll fixes everything random about a roll from the seed pair and
// nonce: the face the die will land on, whether it comes up skull, and the
// seed for the tumble animation. Same inputs, same roll, always.
func deriveRoll(serverSeed, clientSeed string, nonce int64, skullChance float64) (int, models.Outcome, int64) {
	face := int(fairFloat(serverSeed, fmt.Sprintf("face:%s:%d", clientSeed, nonce)) * float64(geom.FaceCount))
	if face >= geom.FaceCount {
		face = geom.FaceCount - 1
	}

	outcome := models.OutcomeSafe
	if fairFloat(serverSeed, fmt.Sprintf("outcome:%s:%d", clientSeed, nonce)) < skullChance {
		outcome = models.OutcomeBust
	}

	return face, outcome, spinSeed(serverSeed, clientSeed, nonce)
}

func spinSeed(serverSeed, clientSeed string, nonce int64) int64 {
	message := fmt.Sprintf("spin:%s:%d", clientSeed, nonce)
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	sum := h.Sum(nil)

	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}

// Roll starts a new roll for the player. Any roll they already had in flight
// is superseded: stopped, never settled, never counted.
func (ge *GameEngine) Roll(ctx context.Context, playerID string) (*models.Roll, error) {
	limit := ge.cfg.RollsPerMinute
	if limit <= 0 {
		limit = DefaultRateLimitRolls
	}

	allowed, err := ge.redisService.CheckRateLimit(playerID, "roll", limit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %v", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	player, err := ge.redisService.GetPlayer(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %v", err)
	}

	ge.mu.Lock()
	serverSeed := ge.serverSeed
	ge.mu.Unlock()

	face, outcome, seed := deriveRoll(serverSeed, player.ClientSeed, player.Nonce, ge.cfg.SkullChance)

	die, err := dice.New(ge.faces, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to build die: %v", err)
	}
	if err := die.StartRoll(face); err != nil {
		return nil, err
	}

	now := time.Now()
	roll := &models.Roll{
		ID:             models.GenerateRollID(),
		PlayerID:       playerID,
		Face:           face,
		Outcome:        models.OutcomePending,
		ClientSeed:     player.ClientSeed,
		ServerSeedHash: hashSeed(serverSeed),
		Nonce:          player.Nonce,
		Status:         "spinning",
		StartedAt:      now.Unix(),
	}

	player.Nonce++
	player.UpdatedAt = now.Unix()
	if err := ge.redisService.StorePlayer(player); err != nil {
		return nil, fmt.Errorf("failed to advance nonce: %v", err)
	}

	instance := &RollInstance{
		Roll:       roll,
		Die:        die,
		PlayerName: player.Name,
		Outcome:    outcome,
		StartedAt:  now,
		LastUpdate: now,
		IsRunning:  true,
		StopChan:   make(chan struct{}),
	}

	ge.mu.Lock()
	if prev, exists := ge.activeRolls[playerID]; exists {
		ge.stopInstanceLocked(prev)
	}
	ge.activeRolls[playerID] = instance
	broadcaster := ge.broadcaster
	ge.mu.Unlock()

	if err := ge.redisService.SaveActiveRoll(roll); err != nil {
		log.Printf("WARN: failed to mirror active roll %s: %v", roll.ID, err)
	}

	if broadcaster != nil {
		broadcaster.BroadcastRollStarted(playerID, roll)
	}

	snapshot := *roll
	go ge.runRoll(instance)

	return &snapshot, nil
}

// stopInstanceLocked halts a roll's goroutine and drops it from the active
// set. Caller holds ge.mu.
func (ge *GameEngine) stopInstanceLocked(instance *RollInstance) {
	if instance.IsRunning {
		instance.IsRunning = false
		close(instance.StopChan)
	}
	delete(ge.activeRolls, instance.Roll.PlayerID)
}

func (ge *GameEngine) runRoll(instance *RollInstance) {
	ticker := time.NewTicker(ge.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ge.advanceRoll(instance) {
				return
			}
		case <-instance.StopChan:
			return
		}
	}
}

// advanceRoll steps the animation one frame. Returns true once the roll is
// finished and the goroutine should exit.
func (ge *GameEngine) advanceRoll(instance *RollInstance) bool {
	ge.mu.Lock()

	if !instance.IsRunning {
		ge.mu.Unlock()
		return true
	}

	now := time.Now()
	dt := now.Sub(instance.LastUpdate).Seconds()
	instance.LastUpdate = now

	frame := instance.Die.Advance(dt)
	instance.LastFrame = frame

	playerID := instance.Roll.PlayerID
	rollID := instance.Roll.ID
	broadcaster := ge.broadcaster
	spinOver := instance.Roll.Status == "spinning" && now.Sub(instance.StartedAt) >= ge.cfg.SpinDuration
	ge.mu.Unlock()

	if broadcaster != nil {
		broadcaster.BroadcastFrame(playerID, rollID, frame)
	}

	if spinOver {
		ge.applyOutcome(instance)
	}

	if frame.Settled {
		ge.settleRoll(instance, frame)
		return true
	}

	return false
}

// applyOutcome runs once the spin window has elapsed: the shared streak
// counter takes the hit and the die is told where to land.
func (ge *GameEngine) applyOutcome(instance *RollInstance) {
	ge.mu.Lock()
	if !instance.IsRunning || instance.Roll.Status != "spinning" {
		ge.mu.Unlock()
		return
	}
	instance.Roll.Status = "settling"
	outcome := instance.Outcome
	playerID := instance.Roll.PlayerID
	ge.mu.Unlock()

	global, err := ge.redisService.ApplyGlobalStreak(outcome)
	if err != nil {
		// The die still has to land; the shared counter just misses a beat.
		log.Printf("WARN: failed to apply global streak for player %s: %v", playerID, err)
		global, _ = ge.redisService.GetGlobalStreak()
	} else {
		event := &models.StreakEvent{
			Type:     streakEventType(outcome),
			Current:  global.Current,
			Best:     global.Best,
			Total:    global.Total,
			PlayerID: playerID,
			At:       time.Now().Unix(),
		}
		if err := ge.redisService.PublishStreakEvent(event); err != nil {
			log.Printf("WARN: failed to publish streak event: %v", err)
		}
	}

	ge.mu.Lock()
	if !instance.IsRunning {
		ge.mu.Unlock()
		return
	}
	instance.Global = global
	if err := instance.Die.StopRoll(outcome); err != nil {
		log.Printf("WARN: failed to stop die for roll %s: %v", instance.Roll.ID, err)
	}
	roll := *instance.Roll
	ge.mu.Unlock()

	if err := ge.redisService.SaveActiveRoll(&roll); err != nil {
		log.Printf("WARN: failed to mirror settling roll %s: %v", roll.ID, err)
	}
}

func streakEventType(outcome models.Outcome) models.StreakEventType {
	if outcome == models.OutcomeBust {
		return models.StreakEventBust
	}
	return models.StreakEventSafe
}

// settleRoll runs once the die has come to rest on the designated face. The
// roll becomes history: persisted, counted into the player's streak, pushed
// to the client.
func (ge *GameEngine) settleRoll(instance *RollInstance, frame dice.Frame) {
	ge.mu.Lock()
	if !instance.IsRunning {
		ge.mu.Unlock()
		return
	}
	instance.IsRunning = false
	close(instance.StopChan)
	delete(ge.activeRolls, instance.Roll.PlayerID)

	now := time.Now()
	instance.Roll.Outcome = instance.Outcome
	instance.Roll.Status = "settled"
	instance.Roll.SettledAt = now.Unix()

	roll := *instance.Roll
	outcome := instance.Outcome
	global := instance.Global
	playerName := instance.PlayerName
	broadcaster := ge.broadcaster
	ge.mu.Unlock()

	ctx := context.Background()

	stats, _, err := ge.store.GetStats(ctx, roll.PlayerID)
	if err != nil {
		log.Printf("WARN: failed to load stats for player %s: %v", roll.PlayerID, err)
		stats = *models.NewPlayerStats(roll.PlayerID)
	}
	stats.Apply(outcome)
	stats.UpdatedAt = now.Unix()
	roll.StreakAfter = stats.Streak

	if err := ge.store.SaveRoll(ctx, &roll); err != nil {
		log.Printf("WARN: failed to persist roll %s: %v", roll.ID, err)
	}
	if err := ge.store.UpsertStats(ctx, playerName, &stats); err != nil {
		log.Printf("WARN: failed to persist stats for player %s: %v", roll.PlayerID, err)
	}

	if err := ge.redisService.ClearActiveRoll(roll.PlayerID); err != nil {
		log.Printf("WARN: failed to clear active roll mirror for player %s: %v", roll.PlayerID, err)
	}

	sound := "roll_win"
	if outcome == models.OutcomeBust {
		sound = "roll_bust"
	}

	faces := dice.Appearance(outcome, roll.Face)

	result := &models.RollResult{
		Roll:   roll,
		Stats:  stats,
		Global: global,
		Faces:  faces[:],
		Sound:  sound,
		Forced: frame.Forced,
	}

	if broadcaster != nil {
		broadcaster.BroadcastRollSettled(roll.PlayerID, result)
	}
}

// ActiveRoll returns a snapshot of the roll a player currently has running.
func (ge *GameEngine) ActiveRoll(playerID string) (*models.Roll, dice.Frame, bool) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	instance, exists := ge.activeRolls[playerID]
	if !exists {
		return nil, dice.Frame{}, false
	}

	roll := *instance.Roll
	return &roll, instance.LastFrame, true
}

// VerifyRoll recomputes a past roll from a revealed server seed so players
// can check the result was committed to before they rolled. The returned
// hash is the seed commitment to compare against the one published earlier.
func (ge *GameEngine) VerifyRoll(serverSeed, clientSeed string, nonce int64) *models.VerifyResponse {
	face, outcome, _ := deriveRoll(serverSeed, clientSeed, nonce, ge.cfg.SkullChance)

	return &models.VerifyResponse{
		Face:    face,
		Outcome: outcome,
		Hash:    hashSeed(serverSeed),
	}
}

// GetVerificationData returns what a player needs to audit their next roll.
func (ge *GameEngine) GetVerificationData(playerID string) (*models.VerificationData, error) {
	player, err := ge.redisService.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}

	return &models.VerificationData{
		ClientSeed:   player.ClientSeed,
		ServerHash:   ge.GetServerHash(),
		CurrentNonce: player.Nonce,
	}, nil
}

// CleanupStaleRolls stops rolls whose goroutine has not advanced them in
// maxAge. A healthy roll ticks many times a second, so anything this old is
// wedged and gets abandoned.
func (ge *GameEngine) CleanupStaleRolls(maxAge time.Duration) {
	ge.mu.Lock()
	var stale []*RollInstance
	for _, instance := range ge.activeRolls {
		if time.Since(instance.LastUpdate) > maxAge {
			stale = append(stale, instance)
		}
	}
	for _, instance := range stale {
		ge.stopInstanceLocked(instance)
	}
	ge.mu.Unlock()

	for _, instance := range stale {
		log.Printf("WARN: cleaned up stale roll %s for player %s", instance.Roll.ID, instance.Roll.PlayerID)
		if err := ge.redisService.ClearActiveRoll(instance.Roll.PlayerID); err != nil {
			log.Printf("WARN: failed to clear active roll mirror for player %s: %v", instance.Roll.PlayerID, err)
		}
	}
}

// Shutdown stops every in-flight roll. Unsettled rolls are abandoned, not
// forced to an outcome.
func (ge *GameEngine) Shutdown() {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	for _, instance := range ge.activeRolls {
		ge.stopInstanceLocked(instance)
	}
}
