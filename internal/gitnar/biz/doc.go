// Package biz 提供 gitnar 服务的业务逻辑层。
//
// 该包采用分层架构，将业务逻辑拆分为以下组件：
//   - Chunker: 负责源码切分（按文件、按行窗口生成片段）
//   - Indexer: 负责片段索引（嵌入生成、批量入库）
//   - Retriever: 负责检索（余弦相似度、跨仓库公平合并）
//   - PromptBuilder: 负责上下文组装（预算控制、确定性截断）
//   - Sessions: 负责会话线程（作用域绑定、串行追加）
//   - Service: 组合以上组件，提供统一的问答接口
package biz
