package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mmynk/splitledger/internal/storage"
)

var errBadScope = errors.New("scope needs a group ID or one or two user IDs")

func expenseFilter(scope storage.Scope) (bson.M, error) {
	switch {
	case scope.GroupID != "":
		return bson.M{"group_id": scope.GroupID}, nil
	case len(scope.UserIDs) == 1:
		u := scope.UserIDs[0]
		return bson.M{"$or": bson.A{
			bson.M{"payer_id": u},
			bson.M{"split.user_id": u},
		}}, nil
	case len(scope.UserIDs) == 2:
		a, b := scope.UserIDs[0], scope.UserIDs[1]
		return bson.M{"$or": bson.A{
			bson.M{"payer_id": a, "split.user_id": b},
			bson.M{"payer_id": b, "split.user_id": a},
		}}, nil
	}
	return nil, errBadScope
}

func settlementFilter(scope storage.Scope) (bson.M, error) {
	switch {
	case scope.GroupID != "":
		return bson.M{"group_id": scope.GroupID}, nil
	case len(scope.UserIDs) == 1:
		u := scope.UserIDs[0]
		return bson.M{"$or": bson.A{
			bson.M{"from_user_id": u},
			bson.M{"to_user_id": u},
		}}, nil
	case len(scope.UserIDs) == 2:
		a, b := scope.UserIDs[0], scope.UserIDs[1]
		return bson.M{"$or": bson.A{
			bson.M{"from_user_id": a, "to_user_id": b},
			bson.M{"from_user_id": b, "to_user_id": a},
		}}, nil
	}
	return nil, errBadScope
}
