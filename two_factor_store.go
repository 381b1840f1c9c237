package paneflow

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix     = "pfc"
	challengeRecordVersion = 1
)

// twoFactorChallenge is the server-side record behind a two_factor pane:
// which option was chosen, how long the expected code is, and how many wrong
// codes have been tried.
type twoFactorChallenge struct {
	OptionID   string
	CodeLength uint16
	ExpiresAt  int64
	Attempts   uint16
}

type twoFactorChallengeStore struct {
	redis redis.UniversalClient
}

func newTwoFactorChallengeStore(redisClient redis.UniversalClient) *twoFactorChallengeStore {
	return &twoFactorChallengeStore{redis: redisClient}
}

func (s *twoFactorChallengeStore) key(flowID string) string {
	return challengeKeyPrefix + ":" + flowID
}

func (s *twoFactorChallengeStore) Save(
	ctx context.Context,
	flowID string,
	record *twoFactorChallenge,
	ttl time.Duration,
) error {
	encoded, err := encodeTwoFactorChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(flowID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return nil
}

func (s *twoFactorChallengeStore) Get(ctx context.Context, flowID string) (*twoFactorChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	record, err := decodeTwoFactorChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(flowID)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

func (s *twoFactorChallengeStore) Delete(ctx context.Context, flowID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(flowID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return n > 0, nil
}

// RecordFailure bumps the attempt counter under WATCH so concurrent wrong
// codes cannot skip the cap. Returns ErrChallengeAttemptsExceeded when the
// cap is reached; the record is deleted in the same transaction.
func (s *twoFactorChallengeStore) RecordFailure(
	ctx context.Context,
	flowID string,
	maxAttempts int,
) error {
	const maxRetries = 4
	key := s.key(flowID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeTwoFactorChallenge(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeTwoFactorChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
		}
		if exceeded {
			return ErrChallengeAttemptsExceeded
		}
		return nil
	}

	return ErrChallengeNotFound
}

func encodeTwoFactorChallenge(record *twoFactorChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CodeLength); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.OptionID) > 65535 {
		return nil, errors.New("two-factor option id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.OptionID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.OptionID)

	return buf.Bytes(), nil
}

func decodeTwoFactorChallenge(data []byte) (*twoFactorChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion {
		return nil, errors.New("invalid two-factor challenge version")
	}

	record := &twoFactorChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CodeLength); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var optionLen uint16
	if err := binary.Read(reader, binary.BigEndian, &optionLen); err != nil {
		return nil, err
	}
	option := make([]byte, optionLen)
	if _, err := io.ReadFull(reader, option); err != nil {
		return nil, err
	}
	record.OptionID = string(option)

	return record, nil
}
