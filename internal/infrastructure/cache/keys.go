package cache

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// digestSize 键哈希摘要长度（字节）
const digestSize = 16

// hashParts 计算各部分拼接后的 BLAKE2b 摘要（十六进制）
func hashParts(parts ...string) string {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		// digestSize 为合法常量，此处不可达
		panic(err)
	}
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EmbedKey 单条文本向量化结果的缓存键
func EmbedKey(model, text string) string {
	return "embed:" + hashParts(model, text)
}

// BatchEmbedKey 批量向量化结果的缓存键
func BatchEmbedKey(model string, texts []string) string {
	return "batch_embed:" + hashParts(model, strings.Join(texts, "\x1f"))
}

// VectorKey 检索结果缓存键
// userID 与 collectionID 作为可见限定段放在哈希之前，
// 使 VectorOwnerPattern 的按属主清除能够命中
func VectorKey(userID, collectionID int64, query string, topK int, minScore float32) string {
	digest := hashParts(query, fmt.Sprintf("%d", topK), fmt.Sprintf("%.4f", minScore))
	return fmt.Sprintf("vector:%d:%d:%s", userID, collectionID, digest)
}

// LLMKey 生成答案缓存键，限定段规则与 VectorKey 一致
// 自定义提示词参与哈希：同问同上下文但模板不同的答案不可混用
func LLMKey(userID, collectionID int64, query, contextText, customPrompt string, temperature float32) string {
	digest := hashParts(query, contextText, customPrompt, fmt.Sprintf("%.4f", temperature))
	return fmt.Sprintf("llm:%d:%d:%s", userID, collectionID, digest)
}

// SessionKey 会话数据缓存键
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ChunksKey 文档分块结果缓存键
func ChunksKey(documentID string) string {
	return "chunks:" + documentID
}

// TranslationKey 翻译结果缓存键，pair 形如 "en-zh"
func TranslationKey(pair, text string) string {
	return "trans:" + pair + ":" + hashParts(text)
}

// UserCollectionsKey 用户集合列表缓存键
func UserCollectionsKey(userID int64) string {
	return fmt.Sprintf("user_collections:%d", userID)
}

// UserSettingsKey 用户设置缓存键
func UserSettingsKey(userID int64) string {
	return fmt.Sprintf("user_settings:%d", userID)
}

// ProgressKey 摄取进度轮询缓存键
func ProgressKey(taskID string) string {
	return "progress:" + taskID
}

// VectorOwnerPattern 某用户某集合全部检索缓存的清除模式
func VectorOwnerPattern(userID, collectionID int64) string {
	return fmt.Sprintf("vector:%d:%d:*", userID, collectionID)
}

// LLMOwnerPattern 某用户某集合全部答案缓存的清除模式
func LLMOwnerPattern(userID, collectionID int64) string {
	return fmt.Sprintf("llm:%d:%d:*", userID, collectionID)
}
