package tasks

import (
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// Classifier decides the destination of a discovered video.
type Classifier struct {
	music       map[string]struct{}
	other       map[string]struct{}
	addOn       models.AddOn
	maxDuration time.Duration
}

// NewClassifier builds the channel sets from groups according to rules.
func NewClassifier(groups models.ChannelGroups, rules shared.RulesConfig, addOn models.AddOn) *Classifier {
	return &Classifier{
		music:       toSet(groups.Union(rules.MusicCategories...)),
		other:       toSet(groups.Union(rules.OtherCategories...)),
		addOn:       addOn,
		maxDuration: rules.MaxDuration(),
	}
}

// Destination applies the routing rules in priority order:
//
//  1. shorts go to the shorts sink
//  2. music longer than the maximum duration goes to watch later when the channel is also
//     tracked as "other", and nowhere otherwise
//  3. music from a favorite channel goes to banger, the rest to release
//  4. anything else goes to watch later
//
// Deleted videos go nowhere.
func (c *Classifier) Destination(v models.Video) models.Destination {
	if v.Deleted() {
		return models.DestNone
	}
	if v.IsShorts {
		return models.DestShorts
	}

	if _, ok := c.music[v.ChannelID]; ok {
		if v.Duration > c.maxDuration {
			if _, ok := c.other[v.ChannelID]; ok {
				return models.DestWatchLater
			}
			return models.DestNone
		}
		if c.addOn.IsFavorite(v.ChannelID) {
			return models.DestBanger
		}
		return models.DestRelease
	}
	return models.DestWatchLater
}

// Route groups videos by destination, keeping their order.
func (c *Classifier) Route(videos []models.Video) map[models.Destination][]models.Video {
	routes := make(map[models.Destination][]models.Video)
	for _, v := range videos {
		dest := c.Destination(v)
		routes[dest] = append(routes[dest], v)
	}
	return routes
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
