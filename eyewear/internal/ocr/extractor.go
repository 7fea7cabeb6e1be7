package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// scanThreshold 缓冲超过该长度才开始查找锚点
	scanThreshold = 1000
	// scanTail 未找到锚点时保留的尾部字节，覆盖跨读边界的锚点
	scanTail = 200
	readChunk = 256
)

// FieldExtractor 从流式响应中提取一个转义字符串字段，不缓冲整个响应
// 不是通用 JSON 解析器：只识别第一个 "name": "value"
type FieldExtractor struct {
	anchor []byte
}

// NewFieldExtractor 创建字段提取器，field 为字段名（不含引号）
func NewFieldExtractor(field string) *FieldExtractor {
	return &FieldExtractor{anchor: []byte(`"` + field + `"`)}
}

type valueState int

const (
	seekColon valueState = iota
	seekQuote
	inValue
	inEscape
	done
)

// valueScanner 找到锚点后逐字节解码字段值
type valueScanner struct {
	state  valueState
	result strings.Builder
}

func (v *valueScanner) feed(data []byte) int {
	for i, ch := range data {
		switch v.state {
		case seekColon:
			if ch == ':' {
				v.state = seekQuote
			}
		case seekQuote:
			if ch == '"' {
				v.state = inValue
			}
		case inValue:
			switch ch {
			case '\\':
				v.state = inEscape
			case '"':
				v.state = done
				return i + 1
			default:
				v.result.WriteByte(ch)
			}
		case inEscape:
			switch ch {
			case 'n':
				v.result.WriteByte('\n')
			case 't':
				v.result.WriteByte(' ')
			case 'r':
			default:
				// \\ 与 \" 以及其它转义字节原样写入
				v.result.WriteByte(ch)
			}
			v.state = inValue
		}
	}
	return len(data)
}

// Extract 读取 r 直到提取出字段值或流结束
// 未找到返回空字符串；值以未转义的引号结束后立即返回，不等待流结束
func (e *FieldExtractor) Extract(r io.Reader) (string, error) {
	buf := make([]byte, 0, scanThreshold+readChunk)
	chunk := make([]byte, readChunk)
	var scanner *valueScanner

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			data := chunk[:n]
			if scanner != nil {
				scanner.feed(data)
				if scanner.state == done {
					return scanner.result.String(), nil
				}
			} else {
				buf = append(buf, data...)
				if len(buf) > scanThreshold {
					if scanner = e.locate(buf); scanner != nil {
						if scanner.state == done {
							return scanner.result.String(), nil
						}
						buf = buf[:0]
					} else {
						buf = append(buf[:0], buf[len(buf)-scanTail:]...)
					}
				}
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read response stream: %w", err)
		}
	}

	// 短响应从未超过阈值，结束时补查一次
	if scanner == nil {
		scanner = e.locate(buf)
	}
	if scanner == nil {
		return "", nil
	}
	// 流在值中途结束时返回已解码的部分
	return scanner.result.String(), nil
}

// locate 在缓冲中查找锚点，找到后把锚点之后的字节交给 valueScanner
func (e *FieldExtractor) locate(buf []byte) *valueScanner {
	idx := bytes.Index(buf, e.anchor)
	if idx < 0 {
		return nil
	}
	scanner := &valueScanner{state: seekColon}
	scanner.feed(buf[idx+len(e.anchor):])
	return scanner
}
