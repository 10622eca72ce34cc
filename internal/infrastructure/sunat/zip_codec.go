package sunat

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
)

const (
	localHeaderSignature    = 0x04034b50
	centralHeaderSignature  = 0x02014b50
	dataDescriptorSignature = 0x08074b50
	localHeaderLen          = 30

	methodStore   = 0
	methodDeflate = 8
)

// ZipDocument empaqueta el XML firmado en un ZIP de una sola entrada.
// El cuerpo va comprimido con deflate crudo y la cabecera lleva CRC32 y tamaños reales.
func ZipDocument(name string, content []byte) ([]byte, error) {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("zip: crear compresor: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("zip: comprimir %s: %w", name, err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar compresor: %w", err)
	}

	header := &zip.FileHeader{
		Name:               name,
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(content),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: uint64(len(content)),
		Modified:           time.Now(),
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.CreateRaw(header)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", name, err)
	}
	if _, err := entry.Write(compressed.Bytes()); err != nil {
		return nil, fmt.Errorf("zip: escribir entrada %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// UnzipResponse devuelve el contenido del primer archivo (no directorio) del ZIP.
// Lee las cabeceras locales directamente; SUNAT a veces entrega archivos sin
// directorio central válido.
func UnzipResponse(data []byte) ([]byte, error) {
	offset := 0
	for {
		if len(data)-offset < localHeaderLen {
			return nil, &domain.ArchiveError{Reason: "archivo truncado o sin entradas"}
		}
		h := data[offset:]
		if binary.LittleEndian.Uint32(h[0:4]) != localHeaderSignature {
			return nil, &domain.ArchiveError{Reason: fmt.Sprintf("firma de cabecera local inválida en el byte %d", offset)}
		}
		flags := binary.LittleEndian.Uint16(h[6:8])
		method := binary.LittleEndian.Uint16(h[8:10])
		compressedSize := int(binary.LittleEndian.Uint32(h[18:22]))
		uncompressedSize := int(binary.LittleEndian.Uint32(h[22:26]))
		nameLen := int(binary.LittleEndian.Uint16(h[26:28]))
		extraLen := int(binary.LittleEndian.Uint16(h[28:30]))

		start := localHeaderLen + nameLen + extraLen
		if len(h) < start {
			return nil, &domain.ArchiveError{Reason: "cabecera local truncada"}
		}
		name := string(h[localHeaderLen : localHeaderLen+nameLen])

		isDir := len(name) > 0 && name[len(name)-1] == '/'

		// bit 3: tamaños en el descriptor posterior; sólo deflate puede delimitarse solo
		dataDescriptor := flags&0x08 != 0
		if dataDescriptor && method != methodDeflate && !isDir {
			return nil, &domain.ArchiveError{Reason: "entrada almacenada con descriptor de datos"}
		}
		if !dataDescriptor && len(h) < start+compressedSize {
			return nil, &domain.ArchiveError{Reason: fmt.Sprintf("entrada %s truncada", name)}
		}

		if isDir {
			if !dataDescriptor {
				offset += start + compressedSize
				continue
			}
			n, err := skipDescribedEntry(h[start:], method)
			if err != nil {
				return nil, &domain.ArchiveError{Reason: fmt.Sprintf("directorio %s: %v", name, err)}
			}
			offset += start + n
			continue
		}

		switch method {
		case methodStore:
			return append([]byte(nil), h[start:start+compressedSize]...), nil
		case methodDeflate:
			body := h[start:]
			if !dataDescriptor {
				body = body[:compressedSize]
			}
			fr := flate.NewReader(bytes.NewReader(body))
			defer fr.Close()
			out, err := io.ReadAll(fr)
			if err != nil {
				return nil, &domain.ArchiveError{Reason: fmt.Sprintf("descomprimir %s: %v", name, err)}
			}
			if !dataDescriptor && uncompressedSize > 0 && len(out) != uncompressedSize {
				return nil, &domain.ArchiveError{Reason: fmt.Sprintf("tamaño inesperado en %s", name)}
			}
			return out, nil
		default:
			return nil, &domain.ArchiveError{Reason: fmt.Sprintf("método de compresión %d no soportado", method)}
		}
	}
}

// skipDescribedEntry devuelve cuántos bytes ocupan el cuerpo de una entrada con bit 3
// y su descriptor de datos (firma opcional, CRC y tamaños de 4 u 8 bytes).
func skipDescribedEntry(body []byte, method uint16) (int, error) {
	consumed := 0
	if method == methodDeflate {
		r := bytes.NewReader(body)
		fr := flate.NewReader(r)
		if _, err := io.Copy(io.Discard, fr); err != nil {
			fr.Close()
			return 0, fmt.Errorf("descomprimir: %w", err)
		}
		fr.Close()
		consumed = len(body) - r.Len()
	}

	pos := consumed
	if len(body) >= pos+4 && binary.LittleEndian.Uint32(body[pos:pos+4]) == dataDescriptorSignature {
		pos += 4
	}
	pos += 12
	if len(body) < pos {
		return 0, fmt.Errorf("descriptor de datos truncado")
	}
	// ZIP64: tamaños de 8 bytes
	if !startsWithHeader(body[pos:]) && len(body) >= pos+8 && startsWithHeader(body[pos+8:]) {
		pos += 8
	}
	return pos, nil
}

func startsWithHeader(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	sig := binary.LittleEndian.Uint32(b[0:4])
	return sig == localHeaderSignature || sig == centralHeaderSignature
}
