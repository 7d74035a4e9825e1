package presentation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kasuganosora/rpg2kbattle/asset"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"github.com/kasuganosora/rpg2kbattle/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssets struct {
	files map[string]string
}

func (f fakeAssets) find(name string) (string, error) {
	if p, ok := f.files[name]; ok {
		return p, nil
	}
	return "", asset.ErrNotFound
}

func (f fakeAssets) FindSound(_ context.Context, name string) (string, error) { return f.find(name) }
func (f fakeAssets) FindMusic(_ context.Context, name string) (string, error) { return f.find(name) }
func (f fakeAssets) FindBattleAnimation(_ context.Context, name string) (string, error) {
	return f.find(name)
}

func newParties(t *testing.T) (*resource.ResourceLoader, *battle.Party, *battle.Party) {
	t.Helper()
	data := testutil.BattleData()
	hero := battle.NewActorBattler(data, battle.ActorConfig{Actor: data.ActorByID(1)})
	slime := battle.NewEnemyBattler(data, data.EnemyByID(1))
	return data, battle.NewParty(battle.FactionAlly, hero), battle.NewParty(battle.FactionEnemy, slime)
}

func TestStage_MessageWindow(t *testing.T) {
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec})

	for _, l := range []string{"a", "b", "c", "d", "e"} {
		s.PushMessage(l)
	}
	assert.Equal(t, []string{"b", "c", "d", "e"}, s.Lines())
	assert.Equal(t, MaxLines, s.LineCount())

	s.PopMessage()
	s.ClearMessages()
	s.ClearMessages()
	s.PopMessage()
	assert.Zero(t, s.LineCount())
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.Transcript())

	types := rec.Types()
	require.Len(t, types, 7)
	assert.Equal(t, "message_pop", types[5])
	assert.Equal(t, "message_clear", types[6])

	last := rec.Events()[4].Payload.(EventMessagePush)
	assert.Equal(t, "e", last.Text)
	assert.Equal(t, 3, last.Line)
}

func TestStage_SpriteChangesOnly(t *testing.T) {
	_, allies, _ := newParties(t)
	hero := allies.Member(0)
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec})

	s.SetSpriteState(hero, battle.SpriteDamage)
	s.SetSpriteState(hero, battle.SpriteDamage)
	s.SetSpriteState(hero, battle.SpriteIdle)

	assert.Equal(t, []string{"sprite", "sprite"}, rec.Types())
	ev := rec.Events()[0].Payload.(EventSprite)
	assert.Equal(t, "damage", ev.State)
	assert.Equal(t, BattlerRef{Index: 0, Ally: true, Name: "Hero"}, ev.Battler)
	assert.Equal(t, battle.SpriteIdle, s.SpriteState(hero))
}

func TestStage_AnimationTimer(t *testing.T) {
	_, _, enemies := newParties(t)
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec})

	s.ShowAnimation(&resource.Animation{ID: 1, Name: "Hit", AnimationName: "Slash", Frames: 3}, enemies.Member(0))
	assert.True(t, s.IsAnimationPlaying())
	for i := 0; i < 5; i++ {
		s.Tick()
	}
	assert.True(t, s.IsAnimationPlaying())
	s.Tick()
	assert.False(t, s.IsAnimationPlaying())

	ev := rec.Events()[0].Payload.(EventAnimation)
	require.NotNil(t, ev.Target)
	assert.False(t, ev.Target.Ally)
	assert.Equal(t, "Slash", ev.Sheet)

	s.ShowAnimation(nil, nil)
	assert.Len(t, rec.Events(), 1)
}

func TestStage_MissingAnimationAsset(t *testing.T) {
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec, Assets: fakeAssets{}})

	s.ShowAnimation(&resource.Animation{ID: 1, AnimationName: "Gone", Frames: 8}, nil)
	assert.False(t, s.IsAnimationPlaying())
	assert.Empty(t, rec.Events())
}

func TestStage_CuePaths(t *testing.T) {
	rec := &Recorder{}
	s := NewStage(StageConfig{
		Emitter: rec,
		Assets:  fakeAssets{files: map[string]string{"Victory1": "/rtp/Music/Victory1.mid"}},
	})

	s.PlayMusic(resource.Sound{Name: "Victory1", Volume: 80})
	s.PlaySound(resource.Sound{Name: "Nope"})

	music := rec.Events()[0].Payload.(EventMusic)
	assert.Equal(t, "/rtp/Music/Victory1.mid", music.Path)
	assert.Equal(t, 80, music.Volume)
	assert.Equal(t, "Victory1", s.Music())

	sound := rec.Events()[1].Payload.(EventSound)
	assert.Empty(t, sound.Path)
	assert.Equal(t, "Nope", sound.Name)
}

func TestStage_FlashExpires(t *testing.T) {
	_, allies, _ := newParties(t)
	hero := allies.Member(0)
	s := NewStage(StageConfig{})

	s.FlashBattler(hero, battle.Color{R: 255, G: 255, B: 255, A: 100}, 2)
	assert.True(t, s.IsFlashing(hero))
	s.Tick()
	assert.True(t, s.IsFlashing(hero))
	s.Tick()
	assert.False(t, s.IsFlashing(hero))
	assert.Equal(t, 2, s.Frame())
}

func TestStage_BeginSnapshots(t *testing.T) {
	_, allies, enemies := newParties(t)
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec})
	s.Begin(allies, enemies)

	ev := rec.Events()[0].Payload.(EventBattleStart)
	require.Len(t, ev.Allies, 1)
	assert.Equal(t, 300, ev.Allies[0].MaxHP)
	assert.Equal(t, 1, ev.Allies[0].Level)
	assert.Equal(t, "Slime", ev.Enemies[0].Name)
}

func TestStage_DrivesPresenter(t *testing.T) {
	data, allies, enemies := newParties(t)
	ctx := battle.NewContext(battle.ContextConfig{
		Data: data, RNG: battle.NewRNG(1), Allies: allies, Enemies: enemies,
	})
	rec := &Recorder{}
	s := NewStage(StageConfig{Emitter: rec})
	p := battle.NewActionPresenter(ctx, s, 1)
	alg := battle.NewNormal(ctx, allies.Member(0), enemies.Member(0))

	done := false
	for i := 0; i < 200 && !done; i++ {
		s.Tick()
		done = p.Process(alg)
	}
	require.True(t, done)
	require.NotEmpty(t, s.Transcript())
	assert.Equal(t, "Hero attacks!", s.Transcript()[0])
	assert.Contains(t, rec.Types(), "animation")
}

func TestPubSubEmitter(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsub, err := ps.Subscribe(ctx, Channel("abc"))
	require.NoError(t, err)
	defer unsub()

	s := NewStage(StageConfig{Emitter: NewPubSubEmitter(ps, "abc", nil)})
	s.Tick()
	s.PushMessage("Slime appears!")

	select {
	case msg := <-ch:
		assert.Equal(t, "battle:abc", msg.Channel)
		var got struct {
			Type    string `json:"type"`
			Frame   int    `json:"frame"`
			Payload struct {
				Text string `json:"text"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "message_push", got.Type)
		assert.Equal(t, 1, got.Frame)
		assert.Equal(t, "Slime appears!", got.Payload.Text)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	s := NewStage(StageConfig{Emitter: Tee(a, nil, b)})
	s.PushMessage("x")
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}
