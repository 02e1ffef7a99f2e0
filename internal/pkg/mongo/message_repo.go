package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ArchiveCollection = "message_archive"

type MessageArchiveRepo interface {
	SaveMessage(ctx context.Context, msg *ArchivedMessage) error
}

type messageArchiveRepoImpl struct {
	col *mongo.Collection
}

func NewMessageArchiveRepo(db *mongo.Database) MessageArchiveRepo {
	return &messageArchiveRepoImpl{
		col: db.Collection(ArchiveCollection),
	}
}

// SaveMessage 按 _id 幂等写入，重试不会产生重复文档
func (s *messageArchiveRepoImpl) SaveMessage(ctx context.Context, msg *ArchivedMessage) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": msg.ID}, msg, options.Replace().SetUpsert(true))
	return err
}
