package resources

import "github.com/penumbra-engine/penumbra/engine/math"

// Kind names a resource family. Manifest requests, registry buckets and
// asset loaders all key on these values.
type Kind string

const (
	KindNone        Kind = ""
	KindMesh        Kind = "mesh"
	KindTexture     Kind = "texture"
	KindMaterial    Kind = "material"
	KindModel       Kind = "model"
	KindSpriteAtlas Kind = "sprite_atlas"
	KindFont        Kind = "font"
	KindShader      Kind = "shader"
)

/**
 * @brief A generic structure for a loaded asset. All format loaders
 * decode into one of these; Data holds the kind-specific payload.
 */
type Asset struct {
	Name     string
	Kind     Kind
	FullPath string
	DataSize uint64
	Data     interface{}
}

/** @brief A GPU id value meaning "no backend object behind this handle". */
const InvalidGPUID uint32 = 0xFFFFFFFF

/**
 * @brief Decoded image pixels as produced by the image loader.
 * Always RGBA8, row-major, top row first unless FlipY was requested.
 */
type ImageData struct {
	Width        uint32
	Height       uint32
	ChannelCount uint8
	Pixels       []uint8
}

/** @brief Parameters used when loading an image. */
type ImageParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

/**
 * @brief Parsed geometry before upload: what the mesh loaders produce
 * and the renderer consumes to create the GPU object.
 */
type MeshData struct {
	Name         string
	Vertices     []math.Vertex3D
	Indices      []uint32
	MaterialName string
	Extents      math.Extents3D
}

/** @brief An uploaded mesh, addressed by registry name. */
type Mesh struct {
	Name         string
	GPUID        uint32
	VertexCount  uint32
	IndexCount   uint32
	MaterialName string
	Extents      math.Extents3D
	/** @brief Incremented every time the mesh data is reloaded. */
	Generation uint32
}

/** @brief An uploaded texture, addressed by registry name. */
type Texture struct {
	Name         string
	GPUID        uint32
	Width        uint32
	Height       uint32
	ChannelCount uint8
	/** @brief Incremented every time the pixel data is reloaded. */
	Generation uint32
}

/** @brief A collection of texture uses. */
type TextureUse int

const (
	TextureUseUnknown     TextureUse = 0x00
	TextureUseMapDiffuse  TextureUse = 0x01
	TextureUseMapSpecular TextureUse = 0x02
	TextureUseMapNormal   TextureUse = 0x03
)

/** @brief Supported texture filtering modes. */
type TextureFilter int

const (
	TextureFilterModeNearest TextureFilter = 0x0
	TextureFilterModeLinear  TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

/**
 * @brief Maps a texture by registry name together with its use and
 * sampling properties.
 */
type TextureMap struct {
	TextureName   string
	Use           TextureUse
	FilterMinify  TextureFilter
	FilterMagnify TextureFilter
	RepeatU       TextureRepeat
	RepeatV       TextureRepeat
}

/**
 * @brief Material configuration as read from a .pmt file, used to build
 * a Material.
 */
type MaterialConfig struct {
	Name            string
	ShaderName      string
	AutoRelease     bool
	DiffuseColour   math.Vec4
	Shininess       float32
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
}

/**
 * @brief A material: the surface properties a mesh is drawn with.
 */
type Material struct {
	Name          string
	ShaderName    string
	DiffuseColour math.Vec4
	Shininess     float32
	DiffuseMap    TextureMap
	SpecularMap   TextureMap
	NormalMap     TextureMap
	/** @brief Incremented every time the material is changed. */
	Generation uint32
}

/**
 * @brief Builds a Material from a parsed configuration. Texture maps
 * carry names only until the referenced textures are registered.
 */
func NewMaterialFromConfig(cfg *MaterialConfig) *Material {
	return &Material{
		Name:          cfg.Name,
		ShaderName:    cfg.ShaderName,
		DiffuseColour: cfg.DiffuseColour,
		Shininess:     cfg.Shininess,
		DiffuseMap:    TextureMap{TextureName: cfg.DiffuseMapName, Use: TextureUseMapDiffuse},
		SpecularMap:   TextureMap{TextureName: cfg.SpecularMapName, Use: TextureUseMapSpecular},
		NormalMap:     TextureMap{TextureName: cfg.NormalMapName, Use: TextureUseMapNormal},
	}
}

/**
 * @brief A model composes meshes and materials by name, as read from a
 * .model manifest. Models carry no GPU object of their own.
 */
type ModelData struct {
	Name          string
	MeshNames     []string
	MaterialNames []string
}

type Model struct {
	Name      string
	Meshes    []string
	Materials []string
}

/** @brief One named rectangle inside a sprite sheet. */
type SpriteRegion struct {
	Name   string
	X, Y   uint32
	Width  uint32
	Height uint32
}

/** @brief A sprite sheet: a texture plus its named regions. */
type SpriteAtlas struct {
	Name        string
	TextureName string
	Regions     map[string]SpriteRegion
}

type FontType int

const (
	FontTypeBitmap FontType = iota
	FontTypeSystem
)

/** @brief A single renderable glyph. */
type FontGlyph struct {
	Codepoint     rune
	X, Y          uint16
	Width, Height uint16
	OffsetX       int16
	OffsetY       int16
	Advance       int16
	PageID        uint8
}

/** @brief A kerning adjustment between two codepoints. */
type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

/**
 * @brief A font face. Bitmap fonts come fully populated from their .fnt
 * file; system fonts carry the parsed face in InternalData and rasterize
 * on demand.
 */
type Font struct {
	Name       string
	Type       FontType
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX uint32
	AtlasSizeY uint32
	Glyphs     []FontGlyph
	Kernings   []FontKerning
	PageFiles  []string
	/** @brief Render API or rasterizer specific data. */
	InternalData interface{}
}

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	FaceCullModeNone         FaceCullMode = 0x0
	FaceCullModeFront        FaceCullMode = 0x1
	FaceCullModeBack         FaceCullMode = 0x2
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x00000008
)

/** @brief Available attribute types. */
type ShaderAttributeType uint

const (
	ShaderAttribTypeFloat32   ShaderAttributeType = 0
	ShaderAttribTypeFloat32_2 ShaderAttributeType = 1
	ShaderAttribTypeFloat32_3 ShaderAttributeType = 2
	ShaderAttribTypeFloat32_4 ShaderAttributeType = 3
	ShaderAttribTypeMatrix4   ShaderAttributeType = 4
	ShaderAttribTypeInt32     ShaderAttributeType = 5
	ShaderAttribTypeUint32    ShaderAttributeType = 6
)

/** @brief Available uniform types. */
type ShaderUniformType uint

const (
	ShaderUniformTypeFloat32   ShaderUniformType = 0
	ShaderUniformTypeFloat32_2 ShaderUniformType = 1
	ShaderUniformTypeFloat32_3 ShaderUniformType = 2
	ShaderUniformTypeFloat32_4 ShaderUniformType = 3
	ShaderUniformTypeInt32     ShaderUniformType = 4
	ShaderUniformTypeMatrix4   ShaderUniformType = 5
	ShaderUniformTypeSampler   ShaderUniformType = 6
)

/**
 * @brief Defines shader scope, which indicates how often a uniform gets
 * updated.
 */
type ShaderScope int

const (
	ShaderScopeGlobal   ShaderScope = 0
	ShaderScopeInstance ShaderScope = 1
	ShaderScopeLocal    ShaderScope = 2
)

/** @brief Configuration for a vertex attribute. */
type ShaderAttributeConfig struct {
	Name string
	Size uint8
	Type ShaderAttributeType
}

/** @brief Configuration for a uniform. */
type ShaderUniformConfig struct {
	Name  string
	Size  uint8
	Type  ShaderUniformType
	Scope ShaderScope
}

/**
 * @brief Configuration for a shader, set from the properties found in a
 * .shadercfg resource file.
 */
type ShaderConfig struct {
	Name           string
	CullMode       FaceCullMode
	RenderpassName string
	Attributes     []ShaderAttributeConfig
	Uniforms       []ShaderUniformConfig
	Stages         []ShaderStage
	StageNames     []string
	StageFilenames []string
}
