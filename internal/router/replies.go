package router

import "fmt"

// User-facing reply texts. The bot speaks Chinese to match its audience;
// operators read the logs in English.
const (
	replyGreeting      = "你好，我是盈盈AI。直接发消息即可开始对话。"
	replyStatusOK      = "盈盈AI 当前运行正常 ✅"
	replyNotAuthorized = "你没有权限执行此操作。"
	replyStatusDenied  = "你没有权限查看状态。"
	replyBusy          = "上一条消息还在处理中，请稍候。"
	replyBackendDown   = "抱歉，服务暂时不可用，请稍后再试。"
	replySuperAdmin    = "超级管理员不可移除。"
	replyGranted       = "已添加管理员：%s"
	replyRevoked       = "已移除管理员：%s"
	replyReloaded      = "知识库已重新加载，共 %d 条。"
	replyReloadFailed  = "知识库重新加载失败，已保留原有条目。"
	noticeSwitched     = "（今日高级模型额度已用完，已切换至标准模型。）"

	replyHelp = "可用命令：\n" +
		"/start — 开始对话\n" +
		"/help — 查看帮助\n" +
		"/status — 查看运行状态（管理员）\n" +
		"/grant <用户ID> — 添加管理员（管理员）\n" +
		"/revoke <用户ID> — 移除管理员（管理员）\n" +
		"/reload — 重新加载知识库（管理员）\n" +
		"\n直接发送消息即可与AI对话。"
)

func usageHint(usage string) string {
	return "用法：" + usage
}

func noticeRemaining(remaining int) string {
	return fmt.Sprintf("（今日高级模型剩余额度：%d。）", remaining)
}

// notAuthorizedReply keeps the original per-command phrasing for /status
// and a generic refusal for everything else.
func notAuthorizedReply(cmd string) string {
	if cmd == "/status" {
		return replyStatusDenied
	}
	return replyNotAuthorized
}
