package inmemdb

import (
	"sync"

	"github.com/trezcool/coursecertificate/core/certificate"
)

type (
	DB struct {
		activity *activityTable
	}

	activityTable struct {
		mutex sync.RWMutex
		table map[string]*certificate.Activity
	}
)

func Open() *DB {
	return &DB{
		activity: &activityTable{table: make(map[string]*certificate.Activity)},
	}
}
