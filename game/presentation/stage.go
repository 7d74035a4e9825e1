package presentation

import (
	"context"
	"errors"

	"github.com/kasuganosora/rpg2kbattle/asset"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

// MaxLines is the height of the battle message window.
const MaxLines = 4

// animationFrameTicks is the number of ticks one animation cell stays up.
const animationFrameTicks = 2

// Assets resolves the files behind sound and animation cues.
// *asset.Resolver implements it.
type Assets interface {
	FindSound(ctx context.Context, name string) (string, error)
	FindMusic(ctx context.Context, name string) (string, error)
	FindBattleAnimation(ctx context.Context, name string) (string, error)
}

// StageConfig configures a Stage.
type StageConfig struct {
	Emitter Emitter
	Assets  Assets // optional; cues are emitted without a path
	Logger  *zap.Logger
}

// Stage is the headless screen of a battle. It keeps the message window,
// sprite poses and animation timers, and turns every change into an event.
// A Stage is not safe for concurrent use.
type Stage struct {
	emitter Emitter
	assets  Assets
	logger  *zap.Logger

	frame      int
	lines      []string
	transcript []string
	sprites    map[battle.Battler]battle.SpriteState
	flashes    map[battle.Battler]int
	animation  int
	music      string
}

var _ battle.Sink = (*Stage)(nil)

// NewStage creates an empty stage.
func NewStage(cfg StageConfig) *Stage {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = Tee()
	}
	return &Stage{
		emitter: cfg.Emitter,
		assets:  cfg.Assets,
		logger:  cfg.Logger,
		sprites: make(map[battle.Battler]battle.SpriteState),
		flashes: make(map[battle.Battler]int),
	}
}

// Emit sends an event stamped with the current frame.
func (s *Stage) Emit(ev Event) {
	s.emitter.Emit(Envelope{Type: ev.EventType(), Frame: s.frame, Payload: ev})
}

// Begin announces the parties.
func (s *Stage) Begin(allies, enemies *battle.Party) {
	s.Emit(EventBattleStart{Allies: SnapshotParty(allies), Enemies: SnapshotParty(enemies)})
}

// Tick advances flash and animation timers by one frame.
func (s *Stage) Tick() {
	s.frame++
	if s.animation > 0 {
		s.animation--
	}
	for b, n := range s.flashes {
		if n <= 1 {
			delete(s.flashes, b)
		} else {
			s.flashes[b] = n - 1
		}
	}
}

func (s *Stage) Frame() int { return s.frame }

// Lines returns the message window contents.
func (s *Stage) Lines() []string {
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Transcript returns every line pushed since the stage was created.
func (s *Stage) Transcript() []string {
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// SpriteState returns the last pose set for b.
func (s *Stage) SpriteState(b battle.Battler) battle.SpriteState { return s.sprites[b] }

// IsFlashing reports whether b has an unfinished flash.
func (s *Stage) IsFlashing(b battle.Battler) bool { return s.flashes[b] > 0 }

// Music returns the name of the music last started.
func (s *Stage) Music() string { return s.music }

// ---- battle.Sink ----

func (s *Stage) PushMessage(text string) {
	if len(s.lines) == MaxLines {
		s.lines = s.lines[1:]
	}
	s.lines = append(s.lines, text)
	s.transcript = append(s.transcript, text)
	s.Emit(EventMessagePush{Text: text, Line: len(s.lines) - 1})
}

func (s *Stage) PopMessage() {
	if len(s.lines) == 0 {
		return
	}
	s.lines = s.lines[:len(s.lines)-1]
	s.Emit(EventMessagePop{})
}

func (s *Stage) ClearMessages() {
	if len(s.lines) == 0 {
		return
	}
	s.lines = s.lines[:0]
	s.Emit(EventMessageClear{})
}

func (s *Stage) LineCount() int { return len(s.lines) }

func (s *Stage) SetSpriteState(b battle.Battler, st battle.SpriteState) {
	if prev, ok := s.sprites[b]; ok && prev == st {
		return
	}
	s.sprites[b] = st
	s.Emit(EventSprite{Battler: RefBattler(b), State: st.String()})
}

func (s *Stage) FlashBattler(b battle.Battler, c battle.Color, frames int) {
	s.flashes[b] = frames
	s.Emit(EventFlash{Battler: RefBattler(b), R: c.R, G: c.G, B: c.B, A: c.A, Frames: frames})
}

func (s *Stage) PlaySound(se resource.Sound) {
	cue := s.cue(se, s.findSound)
	s.Emit(EventSound{Cue: cue})
}

func (s *Stage) PlayMusic(m resource.Sound) {
	s.music = m.Name
	s.Emit(EventMusic{Cue: s.cue(m, s.findMusic)})
}

func (s *Stage) ShowAnimation(a *resource.Animation, target battle.Battler) {
	if a == nil {
		return
	}
	ev := EventAnimation{ID: a.ID, Name: a.Name, Sheet: a.AnimationName, Frames: a.Frames}
	if s.assets != nil {
		p, err := s.assets.FindBattleAnimation(context.Background(), a.AnimationName)
		if err != nil {
			s.logger.Warn("battle animation not found",
				zap.Int("animation", a.ID), zap.String("sheet", a.AnimationName), zap.Error(err))
			return
		}
		ev.Path = p
	}
	if target != nil {
		ref := RefBattler(target)
		ev.Target = &ref
	}
	s.animation = max(a.Frames, 0) * animationFrameTicks
	s.Emit(ev)
}

func (s *Stage) IsAnimationPlaying() bool { return s.animation > 0 }

// ---- cues ----

func (s *Stage) findSound(name string) (string, error) {
	return s.assets.FindSound(context.Background(), name)
}

func (s *Stage) findMusic(name string) (string, error) {
	return s.assets.FindMusic(context.Background(), name)
}

func (s *Stage) cue(snd resource.Sound, find func(string) (string, error)) Cue {
	c := Cue{Name: snd.Name, Volume: snd.Volume, Tempo: snd.Tempo, Balance: snd.Balance}
	if s.assets == nil || snd.IsEmpty() {
		return c
	}
	p, err := find(snd.Name)
	switch {
	case err == nil:
		c.Path = p
	case errors.Is(err, asset.ErrNotFound):
		s.logger.Debug("audio file not found", zap.String("name", snd.Name))
	default:
		s.logger.Warn("audio lookup failed", zap.String("name", snd.Name), zap.Error(err))
	}
	return c
}
