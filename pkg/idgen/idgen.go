package idgen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

// Generator hands out unique string ids
type Generator interface {
	Next() (string, error)
}

// GeneratorFunc adapts a plain function to Generator
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Next() (string, error) { return f() }

// messageEpoch is the sonyflake start time
var messageEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// messageIdWidth keeps byte order equal to numeric order
const messageIdWidth = 20

// MessageIds returns time-ordered ids for messages issued by machine
func MessageIds(machine uint16) (Generator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: messageEpoch,
		MachineID: func() (uint16, error) { return machine, nil },
	})
	if err != nil {
		return nil, fmt.Errorf("sonyflake: %w", err)
	}

	return GeneratorFunc(func() (string, error) {
		n, err := sf.NextID()
		if err != nil {
			return "", fmt.Errorf("next message id: %w", err)
		}
		return fmt.Sprintf("%0*d", messageIdWidth, n), nil
	}), nil
}

// UserIds returns random v4 uuids
func UserIds() Generator {
	return GeneratorFunc(func() (string, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("next user id: %w", err)
		}
		return id.String(), nil
	})
}
