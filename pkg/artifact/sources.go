package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrSourceMissing      = errors.New("source file missing on disk")
	ErrSourcePath         = errors.New("source path outside project root")
	ErrSourceHashMismatch = errors.New("source keccak256 mismatch")
	ErrSourceEncoding     = errors.New("source file is not valid UTF-8")
)

// CollectOptions 控制源文件收集行为
type CollectOptions struct {
	// StrictHashes 为 true 时 keccak256 不一致直接失败，否则只告警
	StrictHashes bool
	// Root 为项目根目录；../ 与绝对路径的源文件按 Root 在磁盘上解析
	// 为空时只能读取 fsys 内的路径
	Root   string
	Logger log.Logger
}

// CollectSources 读取 metadata 引用的全部源文件，fsys 以项目根目录为根
// 任一文件缺失都会返回错误，且错误中列出所有缺失路径
func CollectSources(fsys fs.FS, md *Metadata, opts CollectOptions) (map[string]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Root()
	}

	paths := make([]string, 0, len(md.Sources))
	for p := range md.Sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var errs *multierror.Error
	sources := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := readSource(fsys, opts.Root, p)
		if err != nil {
			switch {
			case errors.Is(err, ErrSourcePath):
				errs = multierror.Append(errs, err)
			case errors.Is(err, fs.ErrNotExist):
				errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrSourceMissing, p))
			default:
				errs = multierror.Append(errs, fmt.Errorf("read source %s: %w", p, err))
			}
			continue
		}
		if !utf8.Valid(data) {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrSourceEncoding, p))
			continue
		}

		if want := md.Sources[p].Keccak256; want != "" {
			expected := common.HexToHash(want)
			actual := crypto.Keccak256Hash(data)
			if expected != actual {
				if opts.StrictHashes {
					errs = multierror.Append(errs, fmt.Errorf("%w: %s (metadata %s, disk %s)", ErrSourceHashMismatch, p, expected.Hex(), actual.Hex()))
					continue
				}
				logger.Warn("Source differs from compiled version", "path", p, "metadata", expected, "disk", actual)
			}
		}

		sources[p] = string(data)
		logger.Debug("Collected source", "path", p, "bytes", len(data))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return sources, nil
}

// readSource 项目内路径经 fsys 读取，其余路径相对 root 直接读磁盘
func readSource(fsys fs.FS, root, p string) ([]byte, error) {
	if name, ok := fsPath(p); ok {
		return fs.ReadFile(fsys, name)
	}
	if root == "" {
		return nil, fmt.Errorf("%w: %s", ErrSourcePath, p)
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, filepath.FromSlash(p))
	}
	return os.ReadFile(target)
}

// fsPath 把 metadata 中的项目相对路径转换为 io/fs 路径
func fsPath(p string) (string, bool) {
	name := path.Clean(strings.TrimPrefix(p, "./"))
	if !fs.ValidPath(name) || name == "." {
		return "", false
	}
	return name, true
}
