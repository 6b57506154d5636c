package model

import "time"

const JobLockCollection = "job_locks"

type JobLockDocument struct {
	Name      string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
}
