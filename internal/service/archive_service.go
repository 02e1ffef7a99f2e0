package service

import (
	"Portal/internal/model"
	"Portal/internal/pkg/mongo"
	"context"
	log "log/slog"
	"sync"
	"time"
)

// ArchiveService 将已持久化的消息异步镜像到 MongoDB
type ArchiveService interface {
	Archive(msg *model.Message)
	Close()
}

type archiveServiceImpl struct {
	repo       mongo.MessageArchiveRepo
	queue      chan *mongo.ArchivedMessage
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
	maxRetries int
	backoff    time.Duration
}

// NewArchiveService 启动异步写入工作池
func NewArchiveService(repo mongo.MessageArchiveRepo, workerCount int) ArchiveService {
	if workerCount <= 0 {
		workerCount = 5
	}
	s := &archiveServiceImpl{
		repo:       repo,
		queue:      make(chan *mongo.ArchivedMessage, 2048),
		stopChan:   make(chan struct{}),
		maxRetries: 3,
		backoff:    time.Second,
	}

	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.archiveWorker()
	}
	return s
}

// Archive 队列满时直接丢弃，归档不影响主流程
func (s *archiveServiceImpl) Archive(msg *model.Message) {
	doc := &mongo.ArchivedMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	select {
	case <-s.stopChan:
		return
	default:
	}
	select {
	case s.queue <- doc:
	default:
		log.Warn("消息归档队列已满，丢弃", "messageID", msg.ID)
	}
}

func (s *archiveServiceImpl) Close() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	log.Info("ArchiveService shut down gracefully")
}

func (s *archiveServiceImpl) archiveWorker() {
	defer s.wg.Done()
	for {
		select {
		case doc := <-s.queue:
			s.save(doc)
		case <-s.stopChan:
			// 退出前写完已入队的消息
			for {
				select {
				case doc := <-s.queue:
					s.save(doc)
				default:
					return
				}
			}
		}
	}
}

func (s *archiveServiceImpl) save(doc *mongo.ArchivedMessage) {
	backoff := s.backoff
	var err error
	for i := 0; i < s.maxRetries; i++ {
		doc.ArchivedAt = time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.repo.SaveMessage(ctx, doc)
		cancel()
		if err == nil {
			return
		}
		if i < s.maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	log.Error("消息归档失败", "messageID", doc.ID, "err", err)
}
