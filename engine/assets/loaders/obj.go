package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/penumbra-engine/penumbra/engine/math"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

// ObjLoader parses the wavefront OBJ subset the engine consumes:
// positions, texture coordinates, normals and faces. Faces with more
// than three corners are fan-triangulated. When the file carries no
// normals they are generated from face geometry.
type ObjLoader struct{}

func (ol *ObjLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	parser := newObjParser()
	scanner := bufio.NewScanner(file)
	// Mesh files can carry long face lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := parser.handleLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(parser.vertices) == 0 || len(parser.indices) == 0 {
		return nil, fmt.Errorf("obj file %s contains no geometry", path)
	}

	if !parser.sawNormal {
		math.GenerateNormals(parser.vertices, parser.indices)
	}
	if parser.sawTexcoord {
		math.GenerateTangents(parser.vertices, parser.indices)
	}

	name := parser.name
	if name == "" {
		name = assetName(path)
	}

	data := &resources.MeshData{
		Name:         name,
		Vertices:     parser.vertices,
		Indices:      parser.indices,
		MaterialName: parser.material,
		Extents:      math.CalculateExtents(parser.vertices),
	}

	vertexSize := uint64(unsafe.Sizeof(math.Vertex3D{}))
	return &resources.Asset{
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(data.Vertices))*vertexSize + uint64(len(data.Indices))*4,
		Data:     data,
	}, nil
}

type objParser struct {
	positions []math.Vec3
	texcoords []math.Vec2
	normals   []math.Vec3

	vertices []math.Vertex3D
	indices  []uint32
	// corners maps a face corner spec ("v/vt/vn") to its vertex index
	// so shared corners are emitted once.
	corners map[string]uint32

	name        string
	material    string
	sawNormal   bool
	sawTexcoord bool
}

func newObjParser() *objParser {
	return &objParser{
		corners: make(map[string]uint32),
	}
}

func (p *objParser) handleLine(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "v":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("vertex position: %w", err)
		}
		p.positions = append(p.positions, v)
	case "vt":
		if len(fields) < 3 {
			return fmt.Errorf("texcoord needs 2 values")
		}
		u, err := parseFloat32(fields[1])
		if err != nil {
			return fmt.Errorf("texcoord: %w", err)
		}
		v, err := parseFloat32(fields[2])
		if err != nil {
			return fmt.Errorf("texcoord: %w", err)
		}
		// OBJ uses a bottom-left UV origin.
		p.texcoords = append(p.texcoords, math.NewVec2(u, 1.0-v))
	case "vn":
		n, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("vertex normal: %w", err)
		}
		p.normals = append(p.normals, n)
	case "f":
		if len(fields) < 4 {
			return fmt.Errorf("face needs at least 3 corners")
		}
		first, err := p.corner(fields[1])
		if err != nil {
			return err
		}
		for i := 2; i < len(fields)-1; i++ {
			second, err := p.corner(fields[i])
			if err != nil {
				return err
			}
			third, err := p.corner(fields[i+1])
			if err != nil {
				return err
			}
			p.indices = append(p.indices, first, second, third)
		}
	case "usemtl":
		if len(fields) > 1 {
			p.material = fields[1]
		}
	case "o", "g":
		if len(fields) > 1 && p.name == "" {
			p.name = fields[1]
		}
	}
	return nil
}

// corner resolves one "v", "v/vt", "v/vt/vn" or "v//vn" face corner to
// a vertex index, emitting the vertex on first sight.
func (p *objParser) corner(spec string) (uint32, error) {
	if idx, ok := p.corners[spec]; ok {
		return idx, nil
	}

	parts := strings.Split(spec, "/")
	vertex := math.Vertex3D{
		Colour: math.NewVec4One(),
	}

	pi, err := p.resolveIndex(parts[0], len(p.positions))
	if err != nil {
		return 0, fmt.Errorf("face corner %q: %w", spec, err)
	}
	vertex.Position = p.positions[pi]

	if len(parts) > 1 && parts[1] != "" {
		ti, err := p.resolveIndex(parts[1], len(p.texcoords))
		if err != nil {
			return 0, fmt.Errorf("face corner %q: %w", spec, err)
		}
		vertex.Texcoord = p.texcoords[ti]
		p.sawTexcoord = true
	}
	if len(parts) > 2 && parts[2] != "" {
		ni, err := p.resolveIndex(parts[2], len(p.normals))
		if err != nil {
			return 0, fmt.Errorf("face corner %q: %w", spec, err)
		}
		vertex.Normal = p.normals[ni]
		p.sawNormal = true
	}

	idx := uint32(len(p.vertices))
	p.vertices = append(p.vertices, vertex)
	p.corners[spec] = idx
	return idx, nil
}

// resolveIndex turns a 1-based, possibly negative OBJ index into a
// 0-based slice index.
func (p *objParser) resolveIndex(field string, count int) (int, error) {
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", field)
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index %s out of range", field)
	}
	return i, nil
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("needs 3 values")
	}
	x, err := parseFloat32(fields[0])
	if err != nil {
		return math.Vec3{}, err
	}
	y, err := parseFloat32(fields[1])
	if err != nil {
		return math.Vec3{}, err
	}
	z, err := parseFloat32(fields[2])
	if err != nil {
		return math.Vec3{}, err
	}
	return math.NewVec3(x, y, z), nil
}

func parseFloat32(field string) (float32, error) {
	f, err := strconv.ParseFloat(field, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", field)
	}
	return float32(f), nil
}
