package battle

import (
	"strings"

	"go.uber.org/zap"
)

// Phase is the presentation phase of the action being played.
type Phase int

const (
	PhaseConditionHeal Phase = iota
	PhaseStart
	PhaseResult
	PhaseFinished
)

var phaseNames = [...]string{"condition_heal", "start", "result", "finished"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// DefaultActionWait is the number of ticks between presentation steps.
const DefaultActionWait = 30

// ActionPresenter plays one action at a time through a Sink, one phase per
// tick. Waits are counted in ticks; a phase always takes at least one tick.
type ActionPresenter struct {
	ctx        *Context
	sink       Sink
	actionWait int

	phase    Phase
	wait     int
	busy     bool
	aborted  bool
	messages []string
	next     int
}

// NewActionPresenter creates a presenter. actionWait <= 0 uses the default.
func NewActionPresenter(ctx *Context, sink Sink, actionWait int) *ActionPresenter {
	if actionWait <= 0 {
		actionWait = DefaultActionWait
	}
	return &ActionPresenter{ctx: ctx, sink: sink, actionWait: actionWait}
}

// Phase returns the current phase.
func (p *ActionPresenter) Phase() Phase { return p.phase }

// Busy reports whether an action is part way through presentation.
func (p *ActionPresenter) Busy() bool { return p.busy }

// Process advances the presentation of alg by one tick. It returns true
// once the action is fully presented; the next call starts a new action.
func (p *ActionPresenter) Process(alg Algorithm) bool {
	if p.sink.IsAnimationPlaying() {
		return false
	}
	p.busy = true

	switch p.phase {
	case PhaseConditionHeal:
		p.conditionHeal(alg)
		return false
	case PhaseStart:
		return p.start(alg)
	case PhaseResult:
		p.result(alg)
		return false
	case PhaseFinished:
		return p.finished(alg)
	}
	return false
}

func (p *ActionPresenter) conditionHeal(alg Algorithm) {
	src := alg.Source()
	if alg.IsFirstAttack() {
		healed := src.NextBattleTurn(p.ctx.RNG)
		remaining := src.InflictedStates()
		src.ApplyConditions()

		shown := false
		if len(healed) > 0 || len(remaining) > 0 {
			p.sink.ClearMessages()
			for _, id := range healed {
				if st := p.ctx.state(id); st != nil && st.MessageRecovery != "" {
					p.sink.PushMessage(src.Name() + st.MessageRecovery)
					shown = true
				}
			}
			for _, id := range remaining {
				if st := p.ctx.state(id); st != nil && st.MessageAffected != "" {
					p.sink.PushMessage(src.Name() + st.MessageAffected)
					shown = true
				}
			}
		}
		p.wait = 0
		if shown {
			p.wait = p.actionWait
		}

		if src.IsDead() {
			p.aborted = true
			p.phase = PhaseFinished
			return
		}
	}

	if alg.Target() == nil && !alg.NoTarget() {
		p.phase = PhaseFinished
		return
	}
	p.phase = PhaseStart
}

func (p *ActionPresenter) start(alg Algorithm) bool {
	if p.wait > 0 {
		p.wait--
		return false
	}
	p.wait = p.actionWait
	p.sink.ClearMessages()

	if !alg.IsTargetValid() {
		t := alg.Target()
		if t == nil {
			p.ctx.Logger.Warn("battle action without valid target",
				zap.Stringer("kind", alg.Kind()), zap.String("source", alg.Source().Name()))
			p.reset()
			return true
		}
		alg.SetTarget(t.Party().NextActiveBattler(t))
		if !alg.IsTargetValid() {
			p.reset()
			return true
		}
	}

	if _, err := alg.Execute(); err != nil {
		p.ctx.Logger.Warn("battle action aborted",
			zap.Stringer("kind", alg.Kind()), zap.String("source", alg.Source().Name()), zap.Error(err))
		p.reset()
		return true
	}

	p.messages = alg.ResultMessages(p.messages[:0])
	p.next = 0
	p.pushLines(alg.StartMessage())
	alg.Apply()

	if alg.IsFirstAttack() {
		if t := alg.Target(); t != nil && t.Faction() == FactionEnemy {
			if anim := alg.Animation(); anim != nil {
				p.sink.ShowAnimation(anim, t)
			}
		}
	}

	src := alg.Source()
	p.sink.FlashBattler(src, flashWhite, flashFrames)
	p.sink.SetSpriteState(src, alg.SourceAnimationState())

	if alg.IsFirstAttack() {
		if se := alg.StartSound(); se != nil {
			p.sink.PlaySound(*se)
		}
	}

	p.phase = PhaseResult
	return false
}

func (p *ActionPresenter) result(alg Algorithm) {
	if p.wait > 0 {
		p.wait--
		return
	}
	p.wait = p.actionWait
	t := alg.Target()

	if p.next < len(p.messages) {
		if p.next == 0 {
			if alg.Outcome().Success && t != nil {
				p.sink.SetSpriteState(t, SpriteDamage)
			}
			if se := alg.ResultSound(); se != nil {
				p.sink.PlaySound(*se)
			}
		} else {
			if t != nil {
				p.sink.SetSpriteState(t, SpriteIdle)
			}
			p.sink.PopMessage()
		}
		p.sink.PushMessage(p.messages[p.next])
		p.next++
		return
	}

	if alg.Outcome().Killed {
		if msg := alg.DeathMessage(); msg != "" {
			p.sink.PushMessage(msg)
		}
	}
	if t != nil && t.IsDead() {
		if se := alg.DeathSound(); se != nil {
			p.sink.PlaySound(*se)
		}
		p.sink.SetSpriteState(t, SpriteDead)
	}
	p.phase = PhaseFinished
}

func (p *ActionPresenter) finished(alg Algorithm) bool {
	if p.wait > 0 {
		p.wait--
		return false
	}
	p.wait = p.actionWait

	if p.aborted {
		p.reset()
		return true
	}
	if t := alg.Target(); t != nil && !t.IsDead() {
		p.sink.SetSpriteState(t, SpriteIdle)
	}
	if alg.TargetNext() {
		p.phase = PhaseConditionHeal
		return false
	}
	p.reset()
	return true
}

// reset prepares for the next action. The wait carries over.
func (p *ActionPresenter) reset() {
	p.phase = PhaseConditionHeal
	p.busy = false
	p.aborted = false
	p.messages = p.messages[:0]
	p.next = 0
}

func (p *ActionPresenter) pushLines(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		p.sink.PushMessage(line)
	}
}
