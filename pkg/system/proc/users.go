//go:build linux

package proc

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru"
)

// userCache maps numeric uids to login names. Misses are cached as the
// decimal uid so an unresolvable uid is looked up only once.
type userCache struct {
	cache  *lru.Cache
	lookup func(uid string) (string, error)
}

func newUserCache(size int, lookup func(string) (string, error)) (*userCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &userCache{cache: c, lookup: lookup}, nil
}

func (u *userCache) Name(uid uint32) string {
	if v, ok := u.cache.Get(uid); ok {
		return v.(string)
	}

	id := strconv.FormatUint(uint64(uid), 10)
	name, err := u.lookup(id)
	if err != nil || name == "" {
		name = id
	}
	u.cache.Add(uid, name)
	return name
}
