// Package pebblestore 提供把日志保存到本地 Pebble 数据库的日志提供者
//
// 键为 "log/" + 8 字节大端纳秒时间戳 + 8 字节序号，按键遍历即按时间顺序读取。
// 值为 Record 的 JSON 编码。
package pebblestore
