package errcode

// 错误码约定（随事件负载下发给订阅方）：
// - 0：无错误
// - 5xxx：系统错误（例如邮件在重试耗尽后仍然失败）
const (
	OK          = 0
	SystemError = 5000
)
