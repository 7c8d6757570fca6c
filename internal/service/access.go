package service

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
)

// AccessProvider hands out storage access for a request.
type AccessProvider interface {
	Privileged() repository.DataAccess
	ForUser(userID uuid.UUID) repository.DataAccess
}

// accessFor selects identity-scoped access for members and privileged access
// for guests, who have no database identity.
func accessFor(p AccessProvider, userID *uuid.UUID) repository.DataAccess {
	if userID != nil {
		return p.ForUser(*userID)
	}
	return p.Privileged()
}

// authorizeOwner checks that caller may act on quiz. A member quiz needs the
// same user; a guest quiz needs the matching session token and must not be
// past its expiry.
func authorizeOwner(quiz *model.Quiz, caller model.Caller, now time.Time) error {
	if quiz.UserID != nil {
		if caller.UserID == nil || *caller.UserID != *quiz.UserID {
			return ErrForbidden
		}
		return nil
	}

	if quiz.SessionToken == nil || caller.SessionToken == "" ||
		subtle.ConstantTimeCompare([]byte(caller.SessionToken), []byte(*quiz.SessionToken)) != 1 {
		return ErrForbidden
	}
	if quiz.Expired(now) {
		return ErrQuizExpired
	}
	return nil
}
