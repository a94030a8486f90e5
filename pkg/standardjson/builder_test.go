package standardjson

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"foundryverify/pkg/artifact"
	"foundryverify/pkg/config"
	"foundryverify/pkg/remappings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project 在临时目录中构造一个最小的 foundry 项目
type project struct {
	t    *testing.T
	root string
	cfg  *config.Config
}

func newProject(t *testing.T, metadata map[string]interface{}, foundryTOML string) *project {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Root = root

	p := &project{t: t, root: root, cfg: cfg}
	encoded, err := json.Marshal(metadata)
	require.NoError(t, err)
	// forge 输出中 metadata 常以字符串形式出现
	art, err := json.Marshal(map[string]interface{}{"abi": []interface{}{}, "metadata": string(encoded)})
	require.NoError(t, err)
	p.write(config.DefaultArtifact, string(art))
	p.write(config.DefaultFoundryTOML, foundryTOML)
	return p
}

func (p *project) write(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.root, rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) run() (string, *Input, error) {
	p.t.Helper()
	out, err := NewBuilder(p.cfg, log.NewLogger(log.DiscardHandler())).Run(context.Background())
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(out)
	require.NoError(p.t, err)
	var in Input
	require.NoError(p.t, json.Unmarshal(data, &in))
	return out, &in, nil
}

func metadata(sources map[string]interface{}, settings map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"compiler": map[string]interface{}{"version": "0.8.24+commit.e11b9ed9"},
		"language": "Solidity",
		"sources":  sources,
		"settings": settings,
	}
}

const chainlinkTOML = "[profile.default]\nremappings = [\n  \"@chainlink/=lib/chainlink/\", # ccip\n]\n"

func TestBuilderScenarioNoMatchingRemapping(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"src/Pool.sol": map[string]interface{}{}}, map[string]interface{}{}),
		chainlinkTOML)
	p.write("src/Pool.sol", "contract Pool {}")

	out, in, err := p.run()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.root, config.DefaultOutput), out)
	assert.Equal(t, map[string]Source{"src/Pool.sol": {Content: "contract Pool {}"}}, in.Sources)
}

func TestBuilderScenarioAliasAdded(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"lib/chainlink/contracts/Token.sol": "CONTENT"}, map[string]interface{}{}),
		chainlinkTOML)
	p.write("lib/chainlink/contracts/Token.sol", "CONTENT")

	_, in, err := p.run()
	require.NoError(t, err)
	assert.Equal(t, map[string]Source{
		"lib/chainlink/contracts/Token.sol": {Content: "CONTENT"},
		"@chainlink/contracts/Token.sol":    {Content: "CONTENT"},
	}, in.Sources)
	assert.Equal(t, "Solidity", in.Language)
}

func TestBuilderScenarioSettingsSanitized(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"src/Pool.sol": map[string]interface{}{}}, map[string]interface{}{
			"optimizer":         map[string]interface{}{"enabled": true},
			"compilationTarget": map[string]interface{}{"src/Pool.sol": "Pool"},
		}),
		"")
	p.write("src/Pool.sol", "contract Pool {}")

	out, _, err := p.run()
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `{"optimizer": {"enabled": true}}`, string(doc["settings"]))
}

func TestBuilderStripSettingsWithoutCompilationTarget(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"src/Pool.sol": map[string]interface{}{}}, map[string]interface{}{
			"optimizer":         map[string]interface{}{"enabled": true},
			"libraries":         map[string]interface{}{},
			"compilationTarget": map[string]interface{}{"src/Pool.sol": "Pool"},
		}),
		"")
	p.write("src/Pool.sol", "contract Pool {}")
	p.cfg.StripSettings = []string{"libraries"}

	_, in, err := p.run()
	require.NoError(t, err)
	assert.NotContains(t, in.Settings, "compilationTarget")
	assert.NotContains(t, in.Settings, "libraries")
	assert.Contains(t, in.Settings, "optimizer")
}

func TestBuilderInvalidUTF8Source(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"src/Pool.sol": map[string]interface{}{}}, map[string]interface{}{}),
		"")
	p.write("src/Pool.sol", "// caf\xe9\ncontract Pool {}")

	_, _, err := p.run()
	require.Error(t, err)
	assert.ErrorIs(t, err, artifact.ErrSourceEncoding)
	assert.Contains(t, err.Error(), "src/Pool.sol")
	_, statErr := os.Stat(p.cfg.OutputPath())
	assert.True(t, os.IsNotExist(statErr), "output must not be created")
}

func TestBuilderSourceOutsideRoot(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"../shared/Lib.sol": map[string]interface{}{}}, map[string]interface{}{}),
		"")
	shared := filepath.Join(filepath.Dir(p.root), "shared", "Lib.sol")
	require.NoError(t, os.MkdirAll(filepath.Dir(shared), 0o755))
	require.NoError(t, os.WriteFile(shared, []byte("library Lib {}"), 0o644))

	_, in, err := p.run()
	require.NoError(t, err)
	assert.Equal(t, map[string]Source{"../shared/Lib.sol": {Content: "library Lib {}"}}, in.Sources)
}

func TestBuilderScenarioMissingSource(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{
			"src/Pool.sol":    map[string]interface{}{},
			"src/Missing.sol": map[string]interface{}{},
		}, map[string]interface{}{}),
		chainlinkTOML)
	p.write("src/Pool.sol", "contract Pool {}")

	_, _, err := p.run()
	require.Error(t, err)
	assert.ErrorIs(t, err, artifact.ErrSourceMissing)
	assert.Contains(t, err.Error(), "src/Missing.sol")

	_, statErr := os.Stat(p.cfg.OutputPath())
	assert.True(t, os.IsNotExist(statErr), "output must not be created")
}

func TestBuilderMissingSourceKeepsPreviousOutput(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"src/Missing.sol": map[string]interface{}{}}, map[string]interface{}{}),
		"")
	p.write(config.DefaultOutput, "previous")

	_, _, err := p.run()
	require.Error(t, err)

	data, readErr := os.ReadFile(p.cfg.OutputPath())
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))
}

func TestBuilderFailures(t *testing.T) {
	t.Run("MissingArtifact", func(t *testing.T) {
		cfg := config.Default()
		cfg.Root = t.TempDir()
		_, err := NewBuilder(cfg, nil).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, artifact.ErrArtifactDecode)
		assert.Contains(t, err.Error(), "load artifact")
	})

	t.Run("MissingFoundryTOML", func(t *testing.T) {
		p := newProject(t, metadata(map[string]interface{}{}, map[string]interface{}{}), "")
		require.NoError(t, os.Remove(p.cfg.FoundryTOMLPath()))
		_, _, err := p.run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse remappings")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("MalformedRemappings", func(t *testing.T) {
		p := newProject(t, metadata(map[string]interface{}{}, map[string]interface{}{}), "remappings = [\n  broken,\n]\n")
		_, _, err := p.run()
		require.Error(t, err)
		assert.ErrorIs(t, err, remappings.ErrMalformedRemappings)
		_, statErr := os.Stat(p.cfg.OutputPath())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("StrictHashMismatch", func(t *testing.T) {
		p := newProject(t,
			metadata(map[string]interface{}{
				"src/Pool.sol": map[string]interface{}{"keccak256": crypto.Keccak256Hash([]byte("contract Old {}")).Hex()},
			}, map[string]interface{}{}),
			"")
		p.write("src/Pool.sol", "contract Pool {}")
		p.cfg.StrictHashes = true

		_, _, err := p.run()
		require.Error(t, err)
		assert.ErrorIs(t, err, artifact.ErrSourceHashMismatch)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := config.Default()
		_, err := NewBuilder(cfg, nil).Build(context.Background())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("Cancelled", func(t *testing.T) {
		p := newProject(t, metadata(map[string]interface{}{}, map[string]interface{}{}), "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewBuilder(p.cfg, log.NewLogger(log.DiscardHandler())).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		_, statErr := os.Stat(p.cfg.OutputPath())
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestBuilderWithSourceFS(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"lib/oz/token/ERC20.sol": map[string]interface{}{}}, map[string]interface{}{"viaIR": true}),
		"remappings = [\"@openzeppelin/=lib/oz/\"]\n")

	fsys := fstest.MapFS{"lib/oz/token/ERC20.sol": {Data: []byte("contract ERC20 {}")}}
	in, err := NewBuilder(p.cfg, log.NewLogger(log.DiscardHandler())).WithSourceFS(fsys).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]Source{
		"lib/oz/token/ERC20.sol":        {Content: "contract ERC20 {}"},
		"@openzeppelin/token/ERC20.sol": {Content: "contract ERC20 {}"},
	}, in.Sources)
	assert.Equal(t, map[string]interface{}{"viaIR": true}, in.Settings)
}

func TestBuilderIdempotent(t *testing.T) {
	p := newProject(t,
		metadata(map[string]interface{}{"lib/chainlink/contracts/Token.sol": map[string]interface{}{}}, map[string]interface{}{"optimizer": map[string]interface{}{"runs": 200}}),
		chainlinkTOML)
	p.write("lib/chainlink/contracts/Token.sol", "CONTENT")

	out, _, err := p.run()
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, _, err = p.run()
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), `"runs": 200`)
}
