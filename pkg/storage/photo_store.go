// Package storage 签到照片本地存储，
// 每个清洗后的用户名一个目录
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sys/unix"
)

const (
	filePrefix       = "capture_"
	defaultExtension = "jpg"
	fileMode         = 0o644
)

var (
	ErrDirUnavailable = errors.New("upload directory does not exist and could not be created")
	ErrDirNotWritable = errors.New("upload directory is not writable")
	ErrWriteFailed    = errors.New("failed to save uploaded file")
)

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)

// LocalStore 照片写入 Root 下
type LocalStore struct {
	root    string
	dirMode os.FileMode
}

// NewLocalStore 创建以 root 为根的存储，目录权限为 dirMode
func NewLocalStore(root string, dirMode os.FileMode) *LocalStore {
	if dirMode == 0 {
		dirMode = 0o755
	}
	return &LocalStore{root: root, dirMode: dirMode}
}

// Root 根目录
func (s *LocalStore) Root() string { return s.root }

// Dir 清洗后用户名对应的照片目录
func (s *LocalStore) Dir(sanitizedIdentity string) string {
	return filepath.Join(s.root, sanitizedIdentity)
}

// Prepare 确保目录存在且可写
// 目录已存在（包括被并发请求创建）不视为错误
func (s *LocalStore) Prepare(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrDirUnavailable, dir)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrDirUnavailable, err)
	case err != nil:
		if err := os.MkdirAll(dir, s.dirMode); err != nil {
			return fmt.Errorf("%w: %v", ErrDirUnavailable, err)
		}
	}

	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirNotWritable, dir, err)
	}
	return nil
}

// NewName 生成唯一文件名
// 扩展名依次取自上传文件名、内容识别，默认 jpg
func (s *LocalStore) NewName(originalName string, head []byte) string {
	return filePrefix + ulid.Make().String() + "." + Extension(originalName, head)
}

// Extension 确定保存文件的扩展名
func Extension(originalName string, head []byte) string {
	ext := strings.TrimPrefix(filepath.Ext(originalName), ".")
	if extensionPattern.MatchString(ext) {
		return ext
	}
	if len(head) > 0 {
		detected := strings.TrimPrefix(mimetype.Detect(head).Extension(), ".")
		if extensionPattern.MatchString(detected) {
			return detected
		}
	}
	return defaultExtension
}

// Save 将 src 写入 dir/name 并返回路径
// 以独占方式创建，不覆盖同名文件
func (s *LocalStore) Save(dir, name string, src io.Reader) (string, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return path, nil
}

// Remove 删除照片，文件已不存在不视为错误
func (s *LocalStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists 文件是否存在
func (s *LocalStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
