package errors

import "google.golang.org/grpc/codes"

// QA 服务代码: 30 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 30 (QA 引擎)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrQAInvalidArgument = Register(New(MakeCode(ServiceQA, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid argument", "请求参数无效"))

	// 资源错误 (类别 04)
	ErrQARepoNotFound  = Register(New(MakeCode(ServiceQA, CategoryResource, 1), 404, codes.NotFound, "Repository not found", "代码仓库不存在"))
	ErrQAGroupNotFound = Register(New(MakeCode(ServiceQA, CategoryResource, 2), 404, codes.NotFound, "Repository group not found", "仓库组不存在"))

	// 会话错误 (类别 05)
	ErrQAScopeMismatch = Register(New(MakeCode(ServiceQA, CategoryConflict, 1), 409, codes.FailedPrecondition, "Session scope mismatch", "会话作用域不匹配"))
	ErrQARepoExists    = Register(New(MakeCode(ServiceQA, CategoryConflict, 2), 409, codes.AlreadyExists, "Repository already registered", "代码仓库已注册"))
	ErrQAGroupExists   = Register(New(MakeCode(ServiceQA, CategoryConflict, 3), 409, codes.AlreadyExists, "Repository group already exists", "仓库组已存在"))

	// 上下文错误 (类别 01)
	ErrQAContextTooLarge = Register(New(MakeCode(ServiceQA, CategoryRequest, 2), 400, codes.InvalidArgument, "Question exceeds prompt budget", "问题超出上下文预算"))

	// 上游供应商错误 (类别 10 - Network)
	ErrQAEmbeddingProvider  = Register(New(MakeCode(ServiceQA, CategoryNetwork, 1), 502, codes.Unavailable, "Embedding provider error", "向量供应商调用失败"))
	ErrQACompletionProvider = Register(New(MakeCode(ServiceQA, CategoryNetwork, 2), 502, codes.Unavailable, "Completion provider error", "生成供应商调用失败"))

	// 索引与存储错误 (类别 07/08)
	ErrQAIndexFailed = Register(New(MakeCode(ServiceQA, CategoryInternal, 1), 500, codes.Internal, "Fragment indexing failed", "片段索引失败"))
	ErrQAGitFailed   = Register(New(MakeCode(ServiceQA, CategoryInternal, 2), 500, codes.Internal, "Git operation failed", "Git 操作失败"))
	ErrQADatabase    = Register(New(MakeCode(ServiceQA, CategoryDatabase, 1), 500, codes.Internal, "QA storage error", "QA 存储错误"))
)
