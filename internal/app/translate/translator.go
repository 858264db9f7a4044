// Package translate provides the anti-corruption layer mapping raw
// platform webhook payloads into internal domain events.
package translate

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/torigoya/requestq/internal/domain/event"
)

// Notification is the inbound raw webhook shape: a subscription block
// carrying the discriminating type, and a loosely-typed event object.
type Notification struct {
	Subscription Subscription   `json:"subscription"`
	Event        map[string]any `json:"event"`
}

// Subscription identifies the raw event type and schema version.
type Subscription struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

// transform converts a raw event object into a typed payload.
type transform func(raw map[string]any) (event.Payload, error)

// transforms is the declarative mapping table from raw platform type to
// payload transform. Raw types outside this table are not modeled and
// are silently dropped.
var transforms = map[string]transform{
	"channel.subscribe":            translateSubscribe,
	"channel.subscription.gift":    translateSubscriptionGift,
	"channel.subscription.message": translateSubscriptionMessage,
	"channel.cheer":                translateCheer,
	"channel.channel_points_custom_reward_redemption.add": translateRewardRedemption,
	"stream.online":  translateStreamOnline,
	"stream.offline": translateStreamOffline,
	"channel.raid":   translateRaid,
}

// Translate maps a raw notification to exactly one domain event.
// Pure and stateless; safe for unlimited concurrent invocation.
// ok is false when the raw type is not in the recognized set; err is
// non-nil only when a recognized payload is malformed.
func Translate(n Notification) (e event.Event, ok bool, err error) {
	fn, known := transforms[n.Subscription.Type]
	if !known {
		return event.Event{}, false, nil
	}

	payload, err := fn(n.Event)
	if err != nil {
		return event.Event{}, false, errors.Wrapf(err, "translating %s", n.Subscription.Type)
	}
	return event.New(event.SourcePlatform, payload), true, nil
}

// Recognized reports whether the raw type is in the mapping table.
func Recognized(rawType string) bool {
	_, ok := transforms[rawType]
	return ok
}

// decode fills target from the raw event object, coercing JSON number
// and string representations where needed.
func decode(raw map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func translateSubscribe(raw map[string]any) (event.Payload, error) {
	var in struct {
		UserID    string `mapstructure:"user_id"`
		UserLogin string `mapstructure:"user_login"`
		Tier      string `mapstructure:"tier"`
		IsGift    bool   `mapstructure:"is_gift"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.ViewerSubscribed{
		UserID:   in.UserID,
		Username: in.UserLogin,
		Tier:     in.Tier,
		IsGift:   in.IsGift,
	}, nil
}

func translateSubscriptionGift(raw map[string]any) (event.Payload, error) {
	var in struct {
		UserID    string `mapstructure:"user_id"`
		UserLogin string `mapstructure:"user_login"`
		Total     int    `mapstructure:"total"`
		Tier      string `mapstructure:"tier"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.ViewerGiftedSubscription{
		GifterID:       in.UserID,
		GifterUsername: in.UserLogin,
		Total:          in.Total,
		Tier:           in.Tier,
	}, nil
}

func translateSubscriptionMessage(raw map[string]any) (event.Payload, error) {
	var in struct {
		UserID           string `mapstructure:"user_id"`
		UserLogin        string `mapstructure:"user_login"`
		CumulativeMonths int    `mapstructure:"cumulative_months"`
		Message          struct {
			Text string `mapstructure:"text"`
		} `mapstructure:"message"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.ViewerSubscriptionMessage{
		UserID:           in.UserID,
		Username:         in.UserLogin,
		CumulativeMonths: in.CumulativeMonths,
		Message:          in.Message.Text,
	}, nil
}

func translateCheer(raw map[string]any) (event.Payload, error) {
	var in struct {
		UserID    string `mapstructure:"user_id"`
		UserLogin string `mapstructure:"user_login"`
		Bits      int    `mapstructure:"bits"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.ViewerCheered{
		UserID:   in.UserID,
		Username: in.UserLogin,
		Bits:     in.Bits,
	}, nil
}

func translateRewardRedemption(raw map[string]any) (event.Payload, error) {
	var in struct {
		UserID    string `mapstructure:"user_id"`
		UserLogin string `mapstructure:"user_login"`
		UserInput string `mapstructure:"user_input"`
		Reward    struct {
			ID    string `mapstructure:"id"`
			Title string `mapstructure:"title"`
		} `mapstructure:"reward"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.CustomRewardRedeemed{
		UserID:      in.UserID,
		Username:    in.UserLogin,
		RewardID:    in.Reward.ID,
		RewardTitle: in.Reward.Title,
		Input:       in.UserInput,
	}, nil
}

func translateStreamOnline(raw map[string]any) (event.Payload, error) {
	var in struct {
		StartedAt string `mapstructure:"started_at"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	startedAt, err := time.Parse(time.RFC3339, in.StartedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing started_at")
	}
	return event.StreamWentOnline{StartedAt: startedAt.UTC()}, nil
}

func translateStreamOffline(map[string]any) (event.Payload, error) {
	return event.StreamWentOffline{}, nil
}

func translateRaid(raw map[string]any) (event.Payload, error) {
	var in struct {
		FromBroadcasterUserID    string `mapstructure:"from_broadcaster_user_id"`
		FromBroadcasterUserLogin string `mapstructure:"from_broadcaster_user_login"`
		Viewers                  int    `mapstructure:"viewers"`
	}
	if err := decode(raw, &in); err != nil {
		return nil, err
	}
	return event.ViewerRaided{
		FromStreamerID:   in.FromBroadcasterUserID,
		FromStreamerName: in.FromBroadcasterUserLogin,
		ViewerCount:      in.Viewers,
	}, nil
}
