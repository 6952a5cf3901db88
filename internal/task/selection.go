package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type SelectionKind string

const (
	KindAll     SelectionKind = "all"
	KindEpisode SelectionKind = "episode"
	KindAsset   SelectionKind = "asset"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Selection names the slice of a project a dashboard tab shows: every task,
// the tasks under one episode's shots, or the tasks of one asset. ID is zero
// for KindAll.
type Selection struct {
	Kind SelectionKind `json:"kind"`
	ID   int           `json:"id,omitempty"`
}

func AllTasks() Selection {
	return Selection{Kind: KindAll}
}

func ByEpisode(id int) Selection {
	return Selection{Kind: KindEpisode, ID: id}
}

func ByAsset(id int) Selection {
	return Selection{Kind: KindAsset, ID: id}
}

// Key is the URL form of the selection: "all", "episode-<id>" or "asset-<id>".
func (s Selection) Key() string {
	if s.Kind == KindAll || s.Kind == "" {
		return string(KindAll)
	}
	return fmt.Sprintf("%s-%d", s.Kind, s.ID)
}

func (s Selection) String() string {
	return s.Key()
}

// ParseSelection is the inverse of Key. An empty key selects all tasks.
func ParseSelection(key string) (Selection, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == string(KindAll) {
		return AllTasks(), nil
	}

	kind, rawID, ok := strings.Cut(key, "-")
	if !ok {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, key)
	}

	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, key)
	}

	switch SelectionKind(kind) {
	case KindEpisode:
		return ByEpisode(id), nil
	case KindAsset:
		return ByAsset(id), nil
	default:
		return Selection{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSelection, kind)
	}
}
