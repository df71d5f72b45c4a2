package service

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sga-horarios/backend/internal/model"
)

// ── 课表 XML 编解码 ──────────────────────────────────────────
//
// 文档结构固定（元素名区分大小写）：
//
//	<sistema_horarios>
//	  <metadata>institucion, facultad, carrera, periodo, fecha_actualizacion</metadata>
//	  <horarios>
//	    <horario id="...">
//	      <materia>codigo, nombre, creditos, nivel</materia>
//	      <profesor>id, nombre, email</profesor>
//	      <aula>codigo, edificio, capacidad, tipo</aula>
//	      <horario_semanal><sesion>dia, hora_inicio, hora_fin, duracion</sesion>...</horario_semanal>
//	      <estudiantes_inscritos/>
//	      <estado/>
//	    </horario>
//	  </horarios>
//	</sistema_horarios>
//
// 缺失的文本节点解码为空串，缺失或非数字的数值节点解码为 0。
// ─────────────────────────────────────────────────────────────

// ErrDecodeFailure 文档不是合法的课表 XML
var ErrDecodeFailure = errors.New("课表文档解析失败")

// lenientInt 宽松整数：缺失或无法解析时为 0
type lenientInt int

func (n *lenientInt) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		v = 0
	}
	*n = lenientInt(v)
	return nil
}

type xmlSystem struct {
	XMLName  xml.Name    `xml:"sistema_horarios"`
	Metadata xmlMetadata `xml:"metadata"`
	Horarios xmlEntries  `xml:"horarios"`
}

type xmlMetadata struct {
	Institucion        string `xml:"institucion"`
	Facultad           string `xml:"facultad"`
	Carrera            string `xml:"carrera"`
	Periodo            string `xml:"periodo"`
	FechaActualizacion string `xml:"fecha_actualizacion"`
}

type xmlEntries struct {
	Items []xmlEntry `xml:"horario"`
}

type xmlEntry struct {
	ID             string      `xml:"id,attr"`
	Materia        xmlSubject  `xml:"materia"`
	Profesor       xmlTeacher  `xml:"profesor"`
	Aula           xmlRoom     `xml:"aula"`
	HorarioSemanal xmlSessions `xml:"horario_semanal"`
	Inscritos      lenientInt  `xml:"estudiantes_inscritos"`
	Estado         string      `xml:"estado"`
}

type xmlSubject struct {
	Codigo   string     `xml:"codigo"`
	Nombre   string     `xml:"nombre"`
	Creditos lenientInt `xml:"creditos"`
	Nivel    string     `xml:"nivel"`
}

type xmlTeacher struct {
	ID     lenientInt `xml:"id"`
	Nombre string     `xml:"nombre"`
	Email  string     `xml:"email"`
}

type xmlRoom struct {
	Codigo    string     `xml:"codigo"`
	Edificio  string     `xml:"edificio"`
	Capacidad lenientInt `xml:"capacidad"`
	Tipo      string     `xml:"tipo"`
}

type xmlSessions struct {
	Items []xmlSession `xml:"sesion"`
}

type xmlSession struct {
	Dia        string     `xml:"dia"`
	HoraInicio string     `xml:"hora_inicio"`
	HoraFin    string     `xml:"hora_fin"`
	Duracion   lenientInt `xml:"duracion"`
}

// ParseScheduleXML 解析课表文档
// 语法错误时返回包装了 ErrDecodeFailure 的错误，不返回部分结果
func ParseScheduleXML(data []byte) (*model.ScheduleSystem, error) {
	var doc xmlSystem
	if err := decodeDocument(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	sys := &model.ScheduleSystem{
		Metadata: model.ScheduleMetadata{
			Institution: doc.Metadata.Institucion,
			Faculty:     doc.Metadata.Facultad,
			Program:     doc.Metadata.Carrera,
			Period:      doc.Metadata.Periodo,
			UpdatedAt:   doc.Metadata.FechaActualizacion,
		},
		Entries: make([]model.ScheduleEntry, 0, len(doc.Horarios.Items)),
	}

	for _, h := range doc.Horarios.Items {
		entry := model.ScheduleEntry{
			ID: h.ID,
			Subject: model.Subject{
				Code:    h.Materia.Codigo,
				Name:    h.Materia.Nombre,
				Credits: int(h.Materia.Creditos),
				Level:   h.Materia.Nivel,
			},
			Instructor: model.Instructor{
				ID:    int(h.Profesor.ID),
				Name:  h.Profesor.Nombre,
				Email: h.Profesor.Email,
			},
			Room: model.Room{
				Code:     h.Aula.Codigo,
				Building: h.Aula.Edificio,
				Capacity: int(h.Aula.Capacidad),
				Type:     h.Aula.Tipo,
			},
			Slots:         make([]model.TimeSlot, 0, len(h.HorarioSemanal.Items)),
			EnrolledCount: int(h.Inscritos),
			Status:        h.Estado,
		}
		for _, s := range h.HorarioSemanal.Items {
			slot := model.TimeSlot{
				Day:             model.Weekday(s.Dia),
				StartTime:       s.HoraInicio,
				EndTime:         s.HoraFin,
				DurationMinutes: int(s.Duracion),
			}
			// 时长以起止时间为准，不信任文档中的 duracion
			slot.Normalize()
			entry.Slots = append(entry.Slots, slot)
		}
		sys.Entries = append(sys.Entries, entry)
	}

	return sys, nil
}

// SerializeScheduleXML 将课表序列化为带 XML 声明的缩进文档
// 文本与属性中的 & < > 均被转义
func SerializeScheduleXML(sys *model.ScheduleSystem) ([]byte, error) {
	doc := xmlSystem{
		Metadata: xmlMetadata{
			Institucion:        sys.Metadata.Institution,
			Facultad:           sys.Metadata.Faculty,
			Carrera:            sys.Metadata.Program,
			Periodo:            sys.Metadata.Period,
			FechaActualizacion: sys.Metadata.UpdatedAt,
		},
		Horarios: xmlEntries{Items: make([]xmlEntry, 0, len(sys.Entries))},
	}

	for _, e := range sys.Entries {
		h := xmlEntry{
			ID: e.ID,
			Materia: xmlSubject{
				Codigo:   e.Subject.Code,
				Nombre:   e.Subject.Name,
				Creditos: lenientInt(e.Subject.Credits),
				Nivel:    e.Subject.Level,
			},
			Profesor: xmlTeacher{
				ID:     lenientInt(e.Instructor.ID),
				Nombre: e.Instructor.Name,
				Email:  e.Instructor.Email,
			},
			Aula: xmlRoom{
				Codigo:    e.Room.Code,
				Edificio:  e.Room.Building,
				Capacidad: lenientInt(e.Room.Capacity),
				Tipo:      e.Room.Type,
			},
			HorarioSemanal: xmlSessions{Items: make([]xmlSession, 0, len(e.Slots))},
			Inscritos:      lenientInt(e.EnrolledCount),
			Estado:         e.Status,
		}
		for _, s := range e.Slots {
			h.HorarioSemanal.Items = append(h.HorarioSemanal.Items, xmlSession{
				Dia:        string(s.Day),
				HoraInicio: s.StartTime,
				HoraFin:    s.EndTime,
				Duracion:   lenientInt(s.DurationMinutes),
			})
		}
		doc.Horarios.Items = append(doc.Horarios.Items, h)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("课表序列化失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("课表序列化失败: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ExportFilename 导出文件名 horarios_<periodo>.xml
// 路径分隔符与空白替换为下划线，学期为空时为 horarios.xml
func ExportFilename(period string) string {
	return exportBaseName(period) + ".xml"
}

// decodeDocument 解码根元素，并读完其后的全部内容
// 根元素之后只允许注释、处理指令与空白
func decodeDocument(data []byte, doc *xmlSystem) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		return err
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("根元素之后存在多余文本")
			}
		case xml.StartElement:
			return fmt.Errorf("根元素之后存在多余元素 <%s>", t.Name.Local)
		case xml.EndElement:
			return fmt.Errorf("多余的结束标签 </%s>", t.Name.Local)
		}
	}
}

func exportBaseName(period string) string {
	p := strings.TrimSpace(period)
	if p == "" {
		return "horarios"
	}
	p = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, p)
	return "horarios_" + p
}
