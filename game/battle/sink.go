package battle

import "github.com/kasuganosora/rpg2kbattle/resource"

// SpriteState is the pose of a battler's sprite.
type SpriteState int

const (
	SpriteIdle SpriteState = iota
	SpriteRightHand
	SpriteLeftHand
	SpriteSkillUse
	SpriteDead
	SpriteDamage
	SpriteBadStatus
	SpriteDefending
	SpriteItem
	SpriteVictory
)

var spriteStateNames = [...]string{
	"idle", "right_hand", "left_hand", "skill_use", "dead",
	"damage", "bad_status", "defending", "item", "victory",
}

func (s SpriteState) String() string {
	if int(s) < len(spriteStateNames) {
		return spriteStateNames[s]
	}
	return "unknown"
}

// Color is an RGBA flash color.
type Color struct {
	R, G, B, A uint8
}

// flashWhite is the flash used for acting battlers and target selection.
var flashWhite = Color{255, 255, 255, 100}

const flashFrames = 15

// Sink receives everything the battle wants shown or played. The presenter
// and the scene drive it; implementations render, record or stream it.
type Sink interface {
	PushMessage(text string)
	PopMessage()
	ClearMessages()
	// LineCount is the number of lines currently in the message window.
	LineCount() int

	SetSpriteState(b Battler, s SpriteState)
	FlashBattler(b Battler, c Color, frames int)

	PlaySound(s resource.Sound)
	PlayMusic(s resource.Sound)

	ShowAnimation(a *resource.Animation, target Battler)
	// IsAnimationPlaying pauses the presenter while true.
	IsAnimationPlaying() bool
}

// Input is polled once per scene tick.
type Input interface {
	Confirm() bool
	Cancel() bool
}
