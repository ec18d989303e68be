package utils

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// StoreRedis caches an instance under "TypeName:key"; obj should be a pointer.
func StoreRedis[T any](obj any, key string) error {
	typeName := GetTypeName[T]()
	return config.SetRedisObject(typeName+":"+key, &obj, GetCacheLifespan())
}

// RetrieveRedis returns nil without error on a cache miss.
func RetrieveRedis[T any](key string) (*T, error) {
	typeName := GetTypeName[T]()
	var obj T
	exists, err := config.GetRedisObject(typeName+":"+key, &obj)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &obj, nil
}

func InvalidateRedis[T any](key string) error {
	typeName := GetTypeName[T]()
	return config.RemoveRedisKey(typeName + ":" + key)
}

// NextSequence reserves the next per-vendor display number for a module
// ("Quotation", "Invoice", ...). Sequences are display-only; document
// identity never depends on them.
func NextSequence(ctx context.Context, vendorId string, moduleName string) (int64, error) {
	key := fmt.Sprintf("seq:%s:%s", vendorId, moduleName)
	return config.GetRedisCounter(ctx, key)
}
