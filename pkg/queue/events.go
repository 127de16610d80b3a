package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishFileUploaded 发布 lv.file.uploaded 事件。
// 文件字节落入对象存储且数据库记账完成后调用，通知下游（审计、病毒扫描等）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishFileUploaded(pub message.Publisher, payload FileUploadedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileUploaded, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileUploaded, msg)
}

// ParseFileUploaded 将 Watermill 消息解析为强类型 Envelope（FileUploadedPayload）。
func ParseFileUploaded(msg *message.Message) (Message[FileUploadedPayload], error) {
	return ParseWatermillMessage[FileUploadedPayload](msg)
}

// PublishBatchCompleted 发布 lv.batch.completed 事件。
func PublishBatchCompleted(pub message.Publisher, payload BatchCompletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicBatchCompleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicBatchCompleted, msg)
}

// ParseBatchCompleted 将 Watermill 消息解析为强类型 Envelope（BatchCompletedPayload）。
func ParseBatchCompleted(msg *message.Message) (Message[BatchCompletedPayload], error) {
	return ParseWatermillMessage[BatchCompletedPayload](msg)
}

// PublishFileDeleted 发布 lv.file.deleted 事件。
func PublishFileDeleted(pub message.Publisher, payload FileDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileDeleted, msg)
}

// PublishLinkExpired 发布 lv.link.expired 事件。
func PublishLinkExpired(pub message.Publisher, payload LinkExpiredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicLinkExpired, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicLinkExpired, msg)
}

// PublishQuotaExceeded 发布 lv.quota.exceeded 事件。
func PublishQuotaExceeded(pub message.Publisher, payload QuotaExceededPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicQuotaExceeded, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicQuotaExceeded, msg)
}
